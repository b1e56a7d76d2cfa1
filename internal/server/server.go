// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts and stops gracefully
//
// The services themselves are built in main.go and passed in through
// Services, so tests can mount the full router over a temporary database.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/auth"
	"github.com/sakif/aisolutions-cms/internal/config"
	"github.com/sakif/aisolutions-cms/internal/handler"
	"github.com/sakif/aisolutions-cms/internal/middleware"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/service"
	"github.com/sakif/aisolutions-cms/internal/upload"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Services is everything the routes depend on.
type Services struct {
	Auth          *service.AuthService
	Contacts      *service.ContactService
	Feedback      *service.FeedbackService
	Articles      *service.ArticleService
	Events        *service.EventService
	Registrations *service.RegistrationService
	Projects      *service.ProjectService
	Solutions     *service.SolutionService
	Gallery       *service.GalleryService

	Files *upload.Store
	DB    handler.Pinger
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
}

// New builds the router. Nothing listens until Start.
func New(cfg *config.Config, svc Services, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(svc)
	return s
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /health                   → store reachability
//	GET  /metrics                  → Prometheus scrape
//	GET  /uploads/*                → stored uploads and thumbnails
//	POST /api/admin/login          → start a session (rate limited per IP)
//	POST /api/admin/logout         → revoke the presented token
//	GET  /api/admin/me             → the logged-in admin
//	POST /api/admin/create         → bootstrap or add an admin
//	     /api/<resource>/...       → see handler.ResourceHandler
//	POST /api/events/{id}/image    → replace an event's cover image
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts the client IP from proxy headers (the rate limiter keys on it)
// 3. Logger / Metrics: see every request, including recovered panics
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: answers preflights before any auth middleware runs
func (s *Server) setupRoutes(svc Services) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true, // the dashboard sends the session cookie
		MaxAge:           300,
	}))

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, notFound(r))
	})

	// === Operational ===
	s.router.Get("/health", handler.NewHealthHandler(svc.DB).HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	fileServer := http.FileServer(http.Dir(svc.Files.Dir()))
	s.router.Handle(upload.DefaultURLPrefix+"/*", http.StripPrefix(upload.DefaultURLPrefix+"/", noListing(fileServer)))

	// === API ===
	admin := auth.RequireAuth(svc.Auth, handler.AuthFailure)
	optional := auth.OptionalAuth(svc.Auth)

	authHandler := handler.NewAuthHandler(svc.Auth, s.config.CookieSecure)
	media := handler.NewMediaHandler(svc.Files, svc.Gallery, svc.Events, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.With(httprate.LimitByIP(s.config.LoginRateLimit, s.config.LoginRateWindow)).
				Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(admin).Get("/me", authHandler.HandleMe)
			r.With(optional).Post("/create", authHandler.HandleCreate)
		})

		r.Route("/contacts", func(r chi.Router) {
			handler.NewResourceHandler[model.Contact](svc.Contacts).
				Routes(r, admin, optional, handler.Exposure{PublicCreate: true})
		})
		r.Route("/feedback", func(r chi.Router) {
			handler.NewResourceHandler[model.Feedback](svc.Feedback).
				Routes(r, admin, optional, handler.Exposure{PublicCreate: true, PublicRead: true})
		})
		r.Route("/articles", func(r chi.Router) {
			handler.NewResourceHandler[model.Article](svc.Articles).
				Routes(r, admin, optional, handler.Exposure{PublicRead: true})
		})
		r.Route("/events", func(r chi.Router) {
			r.With(admin).Post("/{id}/image", media.HandleEventImage)
			handler.NewResourceHandler[model.Event](svc.Events).
				Routes(r, admin, optional, handler.Exposure{PublicRead: true})
		})
		r.Route("/event-registrations", func(r chi.Router) {
			handler.NewResourceHandler[model.EventRegistration](svc.Registrations).
				Routes(r, admin, optional, handler.Exposure{PublicCreate: true})
		})
		r.Route("/projects", func(r chi.Router) {
			handler.NewResourceHandler[model.Project](svc.Projects).
				Routes(r, admin, optional, handler.Exposure{PublicRead: true})
		})
		r.Route("/solutions", func(r chi.Router) {
			handler.NewResourceHandler[model.Solution](svc.Solutions).
				Routes(r, admin, optional, handler.Exposure{PublicRead: true})
		})
		r.Route("/gallery", func(r chi.Router) {
			handler.NewResourceHandler[model.GalleryItem](svc.Gallery).
				Routes(r, admin, optional, handler.Exposure{PublicRead: true, Create: media.HandleGalleryCreate})
		})
	})
}

// noListing hides directory indexes of the upload dir.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			handler.WriteError(w, notFound(r))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func notFound(r *http.Request) error {
	return apperror.NotFoundBy("route", "path", r.URL.Path)
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (shutdownTimeout)
//
// The caller owns the store and the sweeper and closes them after Start
// returns.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.config.ServerAddr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // uploads can be large
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("env", s.config.Env),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
