// Package server is the composition root: it wires the database, the
// content store, services, handlers and middleware into a chi router, and
// owns the HTTP server lifecycle including graceful shutdown.
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

	"github.com/sakif/icon-gallery/internal/auth"
	"github.com/sakif/icon-gallery/internal/handler"
	"github.com/sakif/icon-gallery/internal/middleware"
	sqliteRepo "github.com/sakif/icon-gallery/internal/repository/sqlite"
	"github.com/sakif/icon-gallery/internal/service"
	"github.com/sakif/icon-gallery/internal/storage"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port       int
	DBPath     string // SQLite database file
	StorageDir string // root of the uploaded-file content store
	JWTSecret  string // HMAC secret for session tokens, 16+ chars

	// AutoApprove makes uploads publicly visible immediately. With it off,
	// uploads wait in the pending state for admin approval.
	AutoApprove bool
}

// Server bundles the router with the resources it owns. The database
// connection is closed during shutdown, after in-flight requests drain.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB + storage.Store
//	  → services (icon, category, user, setting)
//	    → handlers
//	      → routes
//
// Each layer sees only interfaces or the layer directly below it.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires middleware, services and handlers to URL patterns.
//
// Route map:
//
//	Public:
//	  GET  /api/icons                     gallery listing (search, category, pagination)
//	  GET  /api/icons/{slug}              icon detail
//	  GET  /api/icons/{slug}/download     download + count
//	  GET  /api/categories                category list with counts
//	  GET  /api/categories/{slug}         category detail
//	  POST /api/auth/register             create account
//	  POST /api/auth/login                password login
//	  POST /api/auth/logout               clear session
//	  GET  /api/auth/google               start Google OAuth
//	  GET  /api/auth/google/callback      finish Google OAuth
//
//	Authenticated:
//	  GET    /api/auth/me                 current user
//	  POST   /api/icons                   upload
//	  GET    /api/my-icons                own icons incl. pending
//	  GET    /api/my-stats                own totals
//	  DELETE /api/icons/{id}              delete own icon
//
//	Admin:
//	  GET    /api/admin/stats
//	  GET    /api/admin/icons
//	  POST   /api/admin/icons/{id}/approve
//	  POST   /api/admin/icons/{id}/unapprove
//	  DELETE /api/admin/icons/{id}
//	  GET    /api/admin/users
//	  PUT    /api/admin/users/{id}
//	  DELETE /api/admin/users/{id}
//	  POST   /api/admin/categories
//	  PUT    /api/admin/categories/{id}
//	  DELETE /api/admin/categories/{id}
//	  GET    /api/admin/settings/auth
//	  PUT    /api/admin/settings/auth
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	store, err := storage.New(s.config.StorageDir)
	if err != nil {
		return fmt.Errorf("creating content store: %w", err)
	}

	iconService := service.NewIconService(s.db, s.db, store, s.config.AutoApprove, s.logger)
	categoryService := service.NewCategoryService(s.db, s.db, s.logger)
	userService := service.NewUserService(s.db, s.db, store, passwords, s.logger)
	settingService := service.NewSettingService(s.db, s.logger)

	iconHandler := handler.NewIconHandler(iconService, userService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	authHandler := handler.NewAuthHandler(userService, settingService, tokens, s.logger)
	adminHandler := handler.NewAdminHandler(iconService, categoryService, userService, s.logger)
	settingsHandler := handler.NewSettingsHandler(settingService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// Public gallery routes. OptionalAuth lets owners see their own
		// pending icons on detail and download.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/icons", iconHandler.HandleList)
			r.Get("/icons/{slug}", iconHandler.HandleGet)
			r.Get("/icons/{slug}/download", iconHandler.HandleDownload)
		})

		r.Get("/categories", categoryHandler.HandleList)
		r.Get("/categories/{slug}", categoryHandler.HandleGet)

		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Get("/auth/google", authHandler.HandleGoogleLogin)
		r.Get("/auth/google/callback", authHandler.HandleGoogleCallback)

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/auth/me", authHandler.HandleMe)
			r.Post("/icons", iconHandler.HandleUpload)
			r.Get("/my-icons", iconHandler.HandleMyIcons)
			r.Get("/my-stats", iconHandler.HandleMyStats)
			r.Delete("/icons/{id}", iconHandler.HandleDelete)
		})

		// Admin routes.
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Use(middleware.RequireAdmin(userService, s.logger))

			r.Get("/stats", adminHandler.HandleStats)

			r.Get("/icons", adminHandler.HandleListIcons)
			r.Post("/icons/{id}/approve", adminHandler.HandleApproveIcon)
			r.Post("/icons/{id}/unapprove", adminHandler.HandleUnapproveIcon)
			r.Delete("/icons/{id}", adminHandler.HandleDeleteIcon)

			r.Get("/users", adminHandler.HandleListUsers)
			r.Put("/users/{id}", adminHandler.HandleUpdateUser)
			r.Delete("/users/{id}", adminHandler.HandleDeleteUser)

			r.Post("/categories", adminHandler.HandleCreateCategory)
			r.Put("/categories/{id}", adminHandler.HandleUpdateCategory)
			r.Delete("/categories/{id}", adminHandler.HandleDeleteCategory)

			r.Get("/settings/auth", settingsHandler.HandleGetAuthSettings)
			r.Put("/settings/auth", settingsHandler.HandleUpdateAuthSettings)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // uploads and downloads move megabytes
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("storage", s.config.StorageDir),
			slog.Bool("autoApprove", s.config.AutoApprove),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
