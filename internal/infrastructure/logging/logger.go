package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "doorsense"

// Logger is the service-wide structured logger. It satisfies the small
// Logger interfaces declared by the door and mqtt packages.
type Logger struct {
	*slog.Logger

	// file is the rotating log file when logging.output is "file".
	file io.Closer
}

// New builds the logger described by the logging section of config.yaml.
//
// Every entry carries service and version attributes. Unknown levels fall
// back to info and unknown formats to JSON.
//
// Parameters:
//   - cfg: Logging section of config.yaml
//   - version: Build version, see cmd/doorsense
//
// Returns:
//   - *Logger: Logger to be closed on shutdown
func New(cfg config.LoggingConfig, version string) *Logger {
	var (
		out  io.Writer = os.Stdout
		file io.Closer
	)
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		out = os.Stderr
	case "file":
		rotating := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		out, file = rotating, rotating
	}

	return &Logger{Logger: slog.New(newHandler(out, cfg, version)), file: file}
}

// newHandler picks the slog handler for cfg.Format and adds the default
// attributes.
func newHandler(w io.Writer, cfg config.LoggingConfig, version string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return h.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
}

// parseLevel accepts the slog level names plus "warning".
func parseLevel(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Close closes the log file, if there is one.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Default is the bootstrap logger used until config.yaml has been loaded:
// JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
