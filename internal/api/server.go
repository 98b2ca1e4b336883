// Package api provides the local HTTP status API and WebSocket log
// stream for syncbridge.
//
// It exposes supervisor status and control, the audit trail, and a
// small set of endpoints proxied through the versioned syncthing
// client, plus a WebSocket channel streaming filtered log lines.
//
// The server follows the same lifecycle pattern as other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/syncbridge-core/internal/audit"
	"github.com/nerrad567/syncbridge-core/internal/infrastructure/config"
	"github.com/nerrad567/syncbridge-core/internal/infrastructure/logging"
	"github.com/nerrad567/syncbridge-core/internal/supervisor"
	"github.com/nerrad567/syncbridge-core/internal/syncthing"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ProcessController is the supervisor surface the API needs. Satisfied
// by *supervisor.Supervisor.
type ProcessController interface {
	Start() error
	Kill() error
	KillAllMatching() (found, killed int)
	Stats() supervisor.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Supervisor  ProcessController
	Syncthing   syncthing.Client // nil until the daemon version has been probed
	AuditRepo   audit.Repository
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP status API server for syncbridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	sup         ProcessController
	auditRepo   audit.Repository
	auditCh     chan *audit.Entry
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()

	// st is written by the version-probe goroutine while handlers are
	// already serving, so access goes through stMu.
	stMu sync.RWMutex
	st   syncthing.Client
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Supervisor == nil {
		return nil, fmt.Errorf("supervisor is required")
	}
	// Syncthing client and audit repo are optional; their endpoints
	// answer 503/500 until configured.

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		sup:       deps.Supervisor,
		st:        deps.Syncthing,
		auditRepo: deps.AuditRepo,
		version:   deps.Version,
	}

	if deps.AuditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	// Use externally-provided hub if available (needed when the log
	// stream is also fed directly from supervisor events in main).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// SetSyncthing installs the versioned API client once the daemon
// version has been probed. Proxied endpoints return 503 until then.
// Safe to call while the server is handling requests.
func (s *Server) SetSyncthing(client syncthing.Client) {
	s.stMu.Lock()
	s.st = client
	s.stMu.Unlock()
}

// Hub returns the WebSocket hub, available after Start.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and the audit
// writer, and launches the HTTP listener in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Serialise audit writes off the request path
	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, audit writer)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
