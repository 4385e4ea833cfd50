package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/doormanhub/doorman-core/internal/action"
	"github.com/doormanhub/doorman-core/internal/audit"
	"github.com/doormanhub/doorman-core/internal/auth"
	"github.com/doormanhub/doorman-core/internal/hardware"
	"github.com/doormanhub/doorman-core/internal/infrastructure/config"
	"github.com/doormanhub/doorman-core/internal/infrastructure/logging"
	"github.com/doormanhub/doorman-core/internal/nfc"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Auth     *auth.Service
	Users    auth.UserRepository
	Actions  *action.Service
	Tags     nfc.Repository
	NFC      *nfc.Service
	Events   audit.Repository
	Recorder *audit.Recorder
	Registry *hardware.Registry
	Hub      *Hub // If set, the server uses this hub instead of creating its own
	Version  string
}

// Server is the HTTP API server for Doorman Core.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket
// event feed. The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	auth        *auth.Service
	users       auth.UserRepository
	actions     *action.Service
	tags        nfc.Repository
	nfc         *nfc.Service
	events      audit.Repository
	recorder    *audit.Recorder
	registry    *hardware.Registry
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Actions == nil {
		return nil, fmt.Errorf("action service is required")
	}
	if deps.Tags == nil {
		return nil, fmt.Errorf("tag repository is required")
	}
	if deps.NFC == nil {
		return nil, fmt.Errorf("nfc service is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("event recorder is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("hardware registry is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		auth:     deps.Auth,
		users:    deps.Users,
		actions:  deps.Actions,
		tags:     deps.Tags,
		nfc:      deps.NFC,
		events:   deps.Events,
		recorder: deps.Recorder,
		registry: deps.Registry,
		version:  deps.Version,
	}

	// Use an externally-provided hub if available (needed when the audit
	// recorder also holds the hub as a notifier).
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create the WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

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

	// Stop background goroutines (hub)
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
