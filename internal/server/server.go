// Package server wires the dependency graph and the routes.
//
//	sqlite.DB → services → handlers → chi router
//
// main builds a Config and calls New; tests call NewWithDB with their own
// database and drive Handler() through httptest.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/company-reviews/internal/auth"
	"github.com/sakif/company-reviews/internal/handler"
	"github.com/sakif/company-reviews/internal/middleware"
	sqliteRepo "github.com/sakif/company-reviews/internal/repository/sqlite"
	"github.com/sakif/company-reviews/internal/service"
)

// requestTimeout bounds every handler, including its database calls.
const requestTimeout = 30 * time.Second

type Config struct {
	Port               int
	DBPath             string
	PageSize           int
	BcryptCost         int
	CORSAllowedOrigins []string
}

// Server owns the database connection and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database at cfg.DBPath and builds the server around it.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewWithDB(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB builds the server around an already opened database.
func NewWithDB(cfg Config, db *sqliteRepo.DB, logger *slog.Logger) (*Server, error) {
	passwords := auth.NewPasswordService()
	if cfg.BcryptCost != 0 {
		var err error
		if passwords, err = auth.NewPasswordServiceWithCost(cfg.BcryptCost); err != nil {
			return nil, err
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(passwords)
	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers:
//
//	POST /api-token-auth/   exchange credentials for a token
//	GET  /reviews/          list the caller's reviews (paginated)
//	POST /reviews/          create a review
//	GET  /reviews/{id}/     retrieve one of the caller's reviews
//	GET  /healthz           liveness
//
// Middleware order: request id, logging, panic recovery, CORS, timeout.
// Logging sits outside Recoverer so recovered panics are logged as 500s.
func (s *Server) setupRoutes(passwords *auth.PasswordService) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	s.router.Use(chimiddleware.Timeout(requestTimeout))

	// Set before any Route call so mounted subrouters inherit them.
	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed())

	authService := service.NewAuthService(s.db, s.db, passwords, s.logger)
	reviewService := service.NewReviewService(s.db, s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, s.config.PageSize, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Route("/api-token-auth", func(r chi.Router) {
		r.MethodNotAllowed(handler.MethodNotAllowed(http.MethodPost))
		r.Post("/", authHandler.HandleObtainToken)
	})

	// Authentication wraps the whole subtree, so an anonymous request gets
	// 401 before routing can answer 404 or 405.
	s.router.Route("/reviews", func(r chi.Router) {
		r.Use(auth.RequireAuth(authService, handler.WriteError))
		r.MethodNotAllowed(handler.MethodNotAllowed(http.MethodGet, http.MethodPost))

		r.Get("/", reviewHandler.HandleList)
		r.Post("/", reviewHandler.HandleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.MethodNotAllowed(handler.MethodNotAllowed(http.MethodGet))
			r.Get("/", reviewHandler.HandleRetrieve)
		})
	})

	s.router.Route("/healthz", func(r chi.Router) {
		r.MethodNotAllowed(handler.MethodNotAllowed(http.MethodGet))
		r.Get("/", healthHandler.HandleHealth)
	})
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Int("pageSize", s.config.PageSize),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
