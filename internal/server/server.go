// Package server provides the HTTP server and routing for papertrade.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/modules/auth"
	authhandlers "github.com/aristath/papertrade/internal/modules/auth/handlers"
	notificationhandlers "github.com/aristath/papertrade/internal/modules/notifications/handlers"
	portfoliohandlers "github.com/aristath/papertrade/internal/modules/portfolio/handlers"
	symbolhandlers "github.com/aristath/papertrade/internal/modules/symbols/handlers"
	tradinghandlers "github.com/aristath/papertrade/internal/modules/trading/handlers"
	userhandlers "github.com/aristath/papertrade/internal/modules/users/handlers"
	wallethandlers "github.com/aristath/papertrade/internal/modules/wallet/handlers"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	Config  *config.Config
	DevMode bool

	TokenManager *auth.TokenManager

	AuthHandlers         *authhandlers.AuthHandlers
	UserHandlers         *userhandlers.UserHandlers
	WalletHandlers       *wallethandlers.WalletHandlers
	SymbolHandlers       *symbolhandlers.SymbolHandlers
	PortfolioHandlers    *portfoliohandlers.PortfolioHandlers
	TradingHandlers      *tradinghandlers.TradingHandlers
	NotificationHandlers *notificationhandlers.NotificationHandlers
	SystemHandlers       *SystemHandlers
	PriceStream          *PriceStreamHandler
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	cfg      Config
	baseCtx  context.Context
	stopBase context.CancelFunc
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// Request contexts derive from baseCtx so Shutdown also tears down
	// long-lived SSE streams instead of waiting on them.
	s.baseCtx, s.stopBase = context.WithCancel(context.Background())

	// No WriteTimeout: SSE responses stream for the life of the client.
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return s.baseCtx },
	}
	s.server.RegisterOnShutdown(s.stopBase)

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes. Auth endpoints and health checks are
// public; everything else requires a valid access token.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.cfg.SystemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		s.cfg.AuthHandlers.RegisterRoutes(r)
		r.Get("/system/health", s.cfg.SystemHandlers.HandleHealth)

		// Long-lived stream; the request timeout would sever it.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.cfg.TokenManager, s.log))
			r.Get("/stream/prices", s.cfg.PriceStream.ServeHTTP)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.cfg.TokenManager, s.log))
			r.Use(middleware.Timeout(60 * time.Second))

			s.cfg.UserHandlers.RegisterRoutes(r)
			s.cfg.WalletHandlers.RegisterRoutes(r)
			s.cfg.SymbolHandlers.RegisterRoutes(r)
			s.cfg.PortfolioHandlers.RegisterRoutes(r)
			s.cfg.TradingHandlers.RegisterRoutes(r)
			s.cfg.NotificationHandlers.RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.With(auth.RequireAdmin).Get("/status", s.cfg.SystemHandlers.HandleStatus)
				r.With(auth.RequireAdmin).Post("/backup", s.cfg.SystemHandlers.HandleBackup)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
