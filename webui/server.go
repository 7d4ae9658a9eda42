// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains the Server organism that wires together all web
// components behind one http.Server.
package webui

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adei_backend/agent"
	"adei_backend/charts"
	"adei_backend/core"
	"adei_backend/db"
	"adei_backend/logging"
	"adei_backend/metrics"
	"adei_backend/shutdown"
)

// AuthProvider is an interface for the optional password gate.
// It is implemented by auth.AuthMiddleware; keeping the interface here
// avoids an import cycle between webui and auth.
type AuthProvider interface {
	// Middleware wraps an http.Handler; unauthenticated requests get 401
	Middleware(next http.Handler) http.Handler
	// PageMiddleware wraps an http.Handler; unauthenticated requests are
	// redirected to the login page
	PageMiddleware(next http.Handler) http.Handler
	// LoginHandler returns the handler for the login page and form
	LoginHandler() http.HandlerFunc
	// LogoutHandler returns the handler for logout
	LogoutHandler() http.HandlerFunc
}

// Server is the main HTTP organism for the ADEI Explorer.
// It wires together:
//   - DashboardAPI for the dataset and activity endpoints
//   - ChatAPI for the question-answering endpoint
//   - ChatSocket for the live chat channel
//   - StaticAssetHandler for the embedded single-page app
//   - DatabaseHealthMonitor for periodic reachability checks
//   - AuthProvider for the optional password gate
//   - LoggingMiddleware for request logging and HTTP metrics
//
// Methods:
//   - NewServer() creates a configured server instance
//   - Start() begins listening on the configured address
//   - Shutdown() gracefully shuts down the server
type Server struct {
	httpServer    *http.Server
	mux           *http.ServeMux
	cfg           *core.Config
	log           *logging.Logger
	authProvider  AuthProvider
	loggingMw     *LoggingMiddleware
	dashboardAPI  *DashboardAPI
	chatAPI       *ChatAPI
	socket        *ChatSocket
	staticHandler *StaticAssetHandler
	chatSessions  *ChatSessionStore
	limiter       *TokenBucketLimiter
	healthMonitor *DatabaseHealthMonitor
	store         metrics.MetricsCollector
}

// ServerDeps carries the components the server composes. Config, Database,
// Repo, Agent and Logger are required. Extractor, Store, Auth and Manager
// may be nil; the matching feature degrades quietly.
type ServerDeps struct {
	Config    *core.Config
	Database  *db.Database
	Repo      *db.Repository
	Agent     *agent.SQLAgent
	Extractor *charts.ChartExtractor
	Store     metrics.MetricsCollector
	Auth      AuthProvider
	Manager   *shutdown.Manager
	Logger    *logging.Logger
}

// NewServer creates a new Server and wires all middleware and handlers.
func NewServer(deps ServerDeps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Database == nil || deps.Repo == nil {
		return nil, fmt.Errorf("database and repository are required")
	}
	if deps.Agent == nil {
		return nil, fmt.Errorf("agent is required")
	}
	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	cfg := deps.Config

	mux := http.NewServeMux()
	staticHandler := NewStaticAssetHandler(DefaultStaticAssetConfig())

	loggingMw := NewLoggingMiddlewareWithConfig(LoggingMiddlewareConfig{
		Logger:    &ZapRequestLogger{Log: log},
		SkipPaths: []string{"/health", "/metrics"},
	})

	apiConfig := DefaultDashboardAPIConfig()
	apiConfig.Version = core.GetVersion()
	dashboardAPI := NewDashboardAPI(deps.Repo, deps.Database, deps.Store, log, apiConfig)

	chatSessions := NewChatSessionStore(cfg.ChatHistoryLimit, DefaultChatSessionIdle)
	limiter := NewTokenBucketLimiter(cfg.ChatRatePerMinute, cfg.ChatRateBurst)

	chatAPI := NewChatAPI(ChatAPIConfig{
		Agent:     deps.Agent,
		Extractor: deps.Extractor,
		Render:    charts.DefaultRenderConfig(),
		Sessions:  chatSessions,
		Repo:      deps.Repo,
		Store:     deps.Store,
		Manager:   deps.Manager,
		Logger:    log,
	})

	socketConfig := DefaultChatSocketConfig()
	socketConfig.TurnTimeout = cfg.WriteTimeout()
	socketConfig.Logger = log
	socket := NewChatSocket(chatAPI, chatSessions, limiter, deps.Store, socketConfig)

	server := &Server{
		mux:           mux,
		cfg:           cfg,
		log:           log.Named("webui"),
		authProvider:  deps.Auth,
		loggingMw:     loggingMw,
		dashboardAPI:  dashboardAPI,
		chatAPI:       chatAPI,
		socket:        socket,
		staticHandler: staticHandler,
		chatSessions:  chatSessions,
		limiter:       limiter,
		store:         deps.Store,
	}

	monitorConfig := DefaultHealthMonitorConfig()
	monitorConfig.Logger = log
	monitorConfig.OnStatusChange = func(connected bool) {
		socket.BroadcastSystemStatus(socket.systemSnapshot())
	}
	server.healthMonitor = NewDatabaseHealthMonitor(deps.Database, deps.Store, monitorConfig)

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      server.rootHandler(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	server.log.Infow("server created",
		"addr", cfg.ListenAddr(),
		"auth_enabled", deps.Auth != nil,
	)

	return server, nil
}

// setupRoutes configures all the HTTP routes.
func (s *Server) setupRoutes() {
	// Probes and scrapers bypass the auth gate
	s.mux.HandleFunc("/health", s.dashboardAPI.HandleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	// Static assets
	s.staticHandler.RegisterRoutes(s.mux)

	// REST API
	s.dashboardAPI.RegisterRoutes(s.mux)
	s.mux.HandleFunc("/api/chat", s.limitChat(s.chatAPI.HandleChat))

	// Live chat channel
	s.mux.HandleFunc("/ws", s.socket.HandleConnection)

	// Auth routes (if enabled)
	if s.authProvider != nil {
		s.mux.HandleFunc("/login", s.authProvider.LoginHandler())
		s.mux.HandleFunc("/logout", s.authProvider.LogoutHandler())
	}

	// Single-page app
	s.mux.HandleFunc("/", s.handleRoot)
}

// rootHandler wraps the mux with the middleware chain.
func (s *Server) rootHandler() http.Handler {
	var handler http.Handler = s.mux
	handler = s.authGate(handler)
	handler = s.loggingMw.Handler(handler)
	return handler
}

// publicPaths are reachable without authentication.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
	"/login":   true,
	"/logout":  true,
}

// authGate applies the password gate when one is configured. API and
// WebSocket requests get a 401, page requests a redirect to /login.
func (s *Server) authGate(next http.Handler) http.Handler {
	if s.authProvider == nil {
		return next
	}

	apiHandler := s.authProvider.Middleware(next)
	pageHandler := s.authProvider.PageMiddleware(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case publicPaths[r.URL.Path]:
			next.ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/ws":
			apiHandler.ServeHTTP(w, r)
		default:
			pageHandler.ServeHTTP(w, r)
		}
	})
}

// limitChat paces the HTTP chat endpoint per client IP. The WebSocket
// channel applies the same limiter per inbound frame.
func (s *Server) limitChat(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ok, wait := s.limiter.Allow(getClientIP(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "rate_limited",
				fmt.Sprintf("too many questions, retry in %s", wait.Round(time.Second)))
			return
		}
		next(w, r)
	}
}

// handleRoot serves the single-page app at the exact root path.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.staticHandler.ServeIndex()(w, r)
}

// Start begins listening for HTTP requests.
// It starts the chat socket hub, the database health monitor and the
// cleanup tickers, then blocks in the HTTP server until shutdown.
func (s *Server) Start(ctx context.Context) error {
	go s.socket.Start(ctx)
	go s.healthMonitor.Start(ctx)
	s.chatSessions.StartCleanupTicker(ctx, 10*time.Minute)
	s.limiter.StartCleanupTicker(ctx, 5*time.Minute)

	s.log.Infow("server starting", "addr", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server. In-flight requests get until
// the context deadline to finish; WebSocket clients are closed after the
// HTTP listener stops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout())
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}

	s.socket.Close()
	s.log.Info("server stopped")
	return nil
}

// Handler returns the full middleware chain around the server's routes.
// It lets callers mount the Explorer under their own listener.
func (s *Server) Handler() http.Handler {
	return s.rootHandler()
}

// Socket returns the chat socket for broadcasting.
func (s *Server) Socket() *ChatSocket {
	return s.socket
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
