package door

import (
	"context"
	"time"
)

// RetentionInterval is how often RunRetention prunes history.
const RetentionInterval = 24 * time.Hour

// RunRetention prunes transitions older than retention immediately and then
// every interval until ctx is cancelled. It blocks; run it in a goroutine.
func RunRetention(ctx context.Context, repo HistoryRepository, retention, interval time.Duration, logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}

	prune := func() {
		n, err := repo.PruneHistory(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("pruning door history failed", "error", err)
			}
			return
		}
		if n > 0 {
			logger.Info("pruned door history", "rows", n, "retention", retention.String())
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
