// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "assemble config, start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go assembles Config from the environment and passes it in. New() builds:
//   sqlite.DB → repositories → services → handlers → routes
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
// Nothing here reads environment variables or touches process-wide globals;
// everything the server needs arrives through Config.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/voyage/internal/auth"
	"github.com/sakif/voyage/internal/handler"
	"github.com/sakif/voyage/internal/middleware"
	sqliteRepo "github.com/sakif/voyage/internal/repository/sqlite"
	"github.com/sakif/voyage/internal/service"
	"github.com/sakif/voyage/internal/storage"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from env vars in one place (main.go)
type Config struct {
	Port      int
	DBPath    string // path to the SQLite database file
	JWTSecret string

	// Object store for photos.
	S3Bucket string
	S3Region string
	S3Prefix string

	// GitHub OAuth. Leave empty to disable the OAuth routes.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the rate limiter's background
// goroutine. Both are released during graceful shutdown in Start().
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Open the database (sqlite.New) — it implements all three repositories
//  2. Build the auth utilities (tokens, passwords, optional GitHub provider)
//  3. Build the photo store (S3)
//  4. Build the services, then the handlers, then wire routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite.DB)
// - Handlers get services (not repositories or the DB)
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		s.limiter.Stop()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /api/experiences/all                       → list all experiences
//	GET    /api/experiences/{id}                      → one experience, fully resolved
//	GET    /api/experiences/type/{experienceType}     → filter by type
//	GET    /api/experiences/country/{country}         → filter by country
//	GET    /api/experiences/country/{country}/{city}  → filter by country + city
//	POST   /api/experiences                 (auth)    → submit
//	DELETE /api/experiences/{id}            (auth)    → delete (author only)
//	POST   /api/experiences/{id}/bookmark   (auth)    → toggle bookmark
//	POST   /api/photos                      (auth)    → upload one photo
//	POST   /api/photos/album                (auth)    → upload an album
//	GET    /api/comments/all                          → list all comments
//	GET    /api/comments/user/{id}                    → comments by a user
//	GET    /api/comments/experience/{id}              → comments on an experience
//	POST   /api/comments/experience/{id}    (auth)    → comment
//	POST   /api/auth/register, /api/auth/login, /api/auth/logout
//	GET    /api/me                          (auth)
//	GET    /auth/github/login, /auth/github/callback
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. OptionalAuth — resolves the user identity when a valid token is
//    present, without blocking anonymous requests
// 4. Logger — logs each request with timing info, request ID, and user
// 5. Recoverer — catches panics and returns 500 instead of crashing
// On protected groups: RequireAuth before the rate limiter, so the limiter
// keys on the verified user instead of the IP.
func (s *Server) setupRoutes() error {
	// === Auth utilities ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(auth.OptionalAuth(tokens))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	// === Photo store ===
	photos, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Bucket: s.config.S3Bucket,
		Region: s.config.S3Region,
		Prefix: s.config.S3Prefix,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("creating photo store: %w", err)
	}

	// === Services ===
	// s.db implements ExperienceRepository, CommentRepository, and
	// UserRepository — one connection, three interfaces.
	experienceService := service.NewExperienceService(s.db, s.db, photos, s.logger)
	commentService := service.NewCommentService(s.db, s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)

	// === Handlers ===
	experienceHandler := handler.NewExperienceHandler(experienceService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	photoHandler := handler.NewPhotoHandler(experienceService, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	rateLimit := s.limiter.Middleware()

	s.router.Route("/api", func(r chi.Router) {
		// Public browsing
		r.Get("/experiences/all", experienceHandler.HandleListAll)
		r.Get("/experiences/type/{experienceType}", experienceHandler.HandleListByType)
		r.Get("/experiences/country/{country}", experienceHandler.HandleListByCountry)
		r.Get("/experiences/country/{country}/{city}", experienceHandler.HandleListByCity)
		r.Get("/experiences/{id}", experienceHandler.HandleGet)

		r.Get("/comments/all", commentHandler.HandleListAll)
		r.Get("/comments/user/{id}", commentHandler.HandleListByUser)
		r.Get("/comments/experience/{id}", commentHandler.HandleListByExperience)

		// Account creation and login (rate limited, no auth yet)
		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			r.Post("/auth/register", authHandler.HandleRegister)
			r.Post("/auth/login", authHandler.HandleLogin)
		})
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Protected writes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(rateLimit)

			r.Post("/experiences", experienceHandler.HandleSubmit)
			r.Delete("/experiences/{id}", experienceHandler.HandleDelete)
			r.Post("/experiences/{id}/bookmark", experienceHandler.HandleToggleBookmark)

			r.Post("/photos", photoHandler.HandleUpload)
			r.Post("/photos/album", photoHandler.HandleUploadAlbum)

			r.Post("/comments/experience/{id}", commentHandler.HandleCreate)
		})

		r.With(requireAuth).Get("/me", authHandler.HandleMe)
	})

	// GitHub OAuth (browser-facing, outside /api)
	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Stop the rate limiter's cleanup goroutine
// 4. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 4, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.limiter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
