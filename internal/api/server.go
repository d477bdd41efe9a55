package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-doorsense/internal/door"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout bounds how long Close waits for open requests.
const gracefulShutdownTimeout = 10 * time.Second

// Deps wires the server to the rest of the process. Logger and Monitor are
// required.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Monitor *door.Monitor
	History door.HistoryRepository // optional: enables /api/v1/door/history
	MQTT    *mqtt.Client           // optional: reported by health and metrics
	DB      *sql.DB                // optional: pool stats in metrics
	Version string
}

// Server answers GET /status and, with diagnostics enabled, the /api/v1 routes
// and the door stream.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	monitor   *door.Monitor
	history   door.HistoryRepository
	mqtt      *mqtt.Client
	db        *sql.DB
	version   string
	startTime time.Time

	hub *Hub

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc // cancels the hub on Close()
}

// New builds a server from deps. Nothing listens until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Monitor == nil {
		return nil, fmt.Errorf("door monitor is required")
	}

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		monitor:   deps.Monitor,
		history:   deps.History,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
	}

	s.hub = NewHub(deps.WS, deps.Logger, deps.Monitor.Latest)

	return s, nil
}

// Hub returns the WebSocket hub so callers can attach it to the monitor.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves HTTP in a background goroutine.
//
// Binding happens synchronously so a port already in use is reported here
// rather than only logged. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the WebSocket hub (not the listener lifetime)
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	addr := s.cfg.ListenAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	s.logger.Info("API server starting",
		"address", ln.Addr().String(),
		"diagnostics", s.cfg.Diagnostics,
	)

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close disconnects stream clients and drains open requests for up to
// gracefulShutdownTimeout before dropping them. Closing a server that never
// started is a no-op.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	cancel := s.cancel
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if cancel != nil {
		cancel()
	}

	ctx, cancelTimeout := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancelTimeout()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
