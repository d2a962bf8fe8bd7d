// Package server wires handlers, middleware, and routes, and owns the
// process lifecycle. It is the composition root: every dependency chain
// (store → service → handler) is assembled in New, and nothing else in the
// codebase constructs collaborators.
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

	"github.com/tdhoang/authcore/internal/auth"
	"github.com/tdhoang/authcore/internal/config"
	"github.com/tdhoang/authcore/internal/handler"
	"github.com/tdhoang/authcore/internal/middleware"
	"github.com/tdhoang/authcore/internal/notify"
	sqliteRepo "github.com/tdhoang/authcore/internal/repository/sqlite"
	"github.com/tdhoang/authcore/internal/service"
)

// Server holds the router and the resources it must release on shutdown.
// The database connection is owned here: graceful shutdown closes it after
// in-flight requests drain, which flushes the WAL and releases the file lock.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and registers all routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and the route table:
//
//	POST /auth/sign-in
//	POST /auth/sign-up
//	GET  /auth/google            GET /auth/google/callback
//	GET  /auth/github            GET /auth/github/callback
//	POST /auth/forgot-password
//	POST /auth/reset-password
//	GET  /auth/logout
//	GET  /api/me                 (protected)
//	GET  /healthz
//
// Middleware runs in registration order: request ID, real IP, recoverer,
// then the request logger.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	codec, err := auth.NewCodec(s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}

	mailer, err := notify.NewSMTPMailer(
		s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.MailFrom, s.logger,
	)
	if err != nil {
		return fmt.Errorf("creating mailer: %w", err)
	}
	sms := notify.NewTwilioSender(
		s.cfg.TwilioAccountSID, s.cfg.TwilioAuthToken, s.cfg.TwilioFrom, s.logger,
	)

	authService := service.NewAuthService(
		s.db.Users(),
		s.db.Webpages(),
		codec,
		auth.NewSessionIssuer(codec, s.cfg.RefreshTokenTTL),
		auth.NewPasswordService(),
		mailer,
		sms,
		s.cfg.ResetTokenTTL,
		s.logger,
	)

	google := auth.NewGoogleProvider(
		s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, s.cfg.GoogleCallbackURL,
	)
	github := auth.NewGitHubProvider(
		s.cfg.GithubClientID, s.cfg.GithubClientSecret, s.cfg.GithubCallbackURL,
	)

	authHandler := handler.NewAuthHandler(
		authService,
		google,
		github,
		s.cfg.AccessTokenTTL,
		s.cfg.RefreshTokenTTL,
		s.cfg.RedirectCookieTTL,
		s.logger,
	)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/sign-in", authHandler.HandleSignIn)
		r.Post("/sign-up", authHandler.HandleSignUp)
		r.Get("/google", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
		r.Get("/github", authHandler.HandleGithubLogin)
		r.Get("/github/callback", authHandler.HandleGithubCallback)
		r.Post("/forgot-password", authHandler.HandleForgotPassword)
		r.Post("/reset-password", authHandler.HandleResetPassword)
		r.Get("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(codec))
		r.Get("/me", authHandler.HandleMe)
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up to
// 30 seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
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
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
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
