package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"platecost/internal/handlers"
	applog "platecost/internal/log"
	"platecost/internal/store"
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr     string
	Session  SessionConfig
	Database *gorm.DB
	// GramsPerPiece is the default weight of one count unit for compare
	// requests that normalize without naming a factor.
	GramsPerPiece float64
}

// SessionConfig controls session behavior for the HTTP server.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// Server wraps an http.Server serving the cost API.
type Server struct {
	config     Config
	httpServer *http.Server
}

// New builds a new Server using the provided configuration. A nil Database
// leaves the data endpoints answering 503.
func New(cfg Config) (*Server, error) {
	applog.Debug(context.Background(), "initializing server",
		"addr", cfg.Addr,
		"sessionLifetime", cfg.Session.Lifetime.String(),
		"sessionCookie", cfg.Session.CookieName,
	)

	sessionCfg := cfg.Session
	if sessionCfg.Lifetime <= 0 {
		applog.Debug(context.Background(), "session lifetime not provided, using default")
		sessionCfg.Lifetime = 12 * time.Hour
	}
	if strings.TrimSpace(sessionCfg.CookieName) == "" {
		applog.Debug(context.Background(), "session cookie name not provided, using default")
		sessionCfg.CookieName = "platecost_session"
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = sessionCfg.Lifetime
	sessionManager.Cookie.Name = sessionCfg.CookieName
	sessionManager.Cookie.Domain = sessionCfg.CookieDomain
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = sessionCfg.CookieSecure

	applog.Debug(context.Background(), "session manager configured",
		"cookieName", sessionCfg.CookieName,
		"cookieDomain", sessionCfg.CookieDomain,
		"cookieSecure", sessionCfg.CookieSecure,
	)

	var repository *store.Store
	if cfg.Database != nil {
		repository = store.New(cfg.Database)
	} else {
		applog.Warn(context.Background(), "server started without a database; data endpoints will be unavailable")
	}
	handlers.Configure(sessionManager, repository)
	handlers.ConfigureCompare(cfg.GramsPerPiece)

	applog.Debug(context.Background(), "handler dependencies configured")

	handler := sessionManager.LoadAndSave(newRouter())

	return &Server{
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Start begins serving HTTP traffic using the underlying http.Server.
func (s *Server) Start() error {
	applog.Debug(context.Background(), "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
