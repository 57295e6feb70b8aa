package main

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

	"webmail_auth/internal/auth"
	"webmail_auth/internal/config"
	"webmail_auth/internal/http_server/handlers/login"
	"webmail_auth/internal/http_server/handlers/logout"
	"webmail_auth/internal/http_server/handlers/me"
	"webmail_auth/internal/http_server/handlers/refresh"
	"webmail_auth/internal/http_server/handlers/register"
	resendEmail "webmail_auth/internal/http_server/handlers/resend_verification_email"
	"webmail_auth/internal/http_server/handlers/verify"
	"webmail_auth/internal/http_server/middleware/authn"
	rateLimit "webmail_auth/internal/http_server/middleware/ratelimit"
	"webmail_auth/internal/http_server/middleware/secure"
	sl "webmail_auth/internal/lib/logger/sl"
	"webmail_auth/internal/lib/password"
	"webmail_auth/internal/lib/sweeper"
	"webmail_auth/internal/lib/validate"
	"webmail_auth/internal/lib/verification"
	"webmail_auth/internal/models"
	"webmail_auth/internal/rabbitmq"
	"webmail_auth/internal/ratelimit"
	"webmail_auth/internal/session"
	"webmail_auth/internal/storage/memory"
	"webmail_auth/internal/storage/postgres"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	storageMemory   = "memory"
	storagePostgres = "postgres"
)

type userStore interface {
	auth.UserSaver
	auth.UserProvider
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting webmail auth", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := setupStorage(ctx, cfg)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer closeStore()

	publisher, closePublisher, err := setupPublisher(cfg, log)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer closePublisher()

	limiter := ratelimit.New(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
	sessions := session.NewStore(cfg.Session.Timeout)

	go sweeper.Run(ctx, log, cfg.Session.CleanupInterval,
		sweeper.Task{Name: "login_attempts", Cleanup: limiter.Cleanup},
		sweeper.Task{Name: "sessions", Cleanup: sessions.Cleanup},
	)

	authService := auth.New(
		log,
		store,
		store,
		password.NewHasher(password.DefaultParams),
		limiter,
		sessions,
		cfg.Tokens.Secret,
		cfg.Tokens.TTL,
	)

	router := setupRouter(log, cfg, authService, publisher)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}
}

func setupStorage(ctx context.Context, cfg *config.Config) (userStore, func(), error) {
	switch cfg.Storage {
	case storageMemory:
		return memory.New(), func() {}, nil
	case storagePostgres:
	default:
		return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	repo, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, nil, err
	}

	return repo, repo.Close, nil
}

func setupPublisher(cfg *config.Config, log *slog.Logger) (verification.Publisher, func(), error) {
	if cfg.RabbitMQ.URL == "" || cfg.Storage == storageMemory {
		log.Warn("mail queue disabled, verification links are logged")
		return logPublisher{log: log}, func() {}, nil
	}

	client, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		return nil, nil, err
	}

	return client, client.Close, nil
}

// logPublisher stands in for the mail queue on local runs.
type logPublisher struct {
	log *slog.Logger
}

func (p logPublisher) SendMessage(_ context.Context, msg models.Message) error {
	p.log.Info("verification mail", slog.String("to", msg.Email), slog.String("link", msg.Link))
	return nil
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	authService *auth.Auth,
	publisher verification.Publisher,
) *chi.Mux {
	v := validate.New()

	cookie := authn.Cookie{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.SecureCookie,
		MaxAge: cfg.Session.Timeout,
	}

	mail := register.Mail{
		Publisher:   publisher,
		TokenTTL:    cfg.Tokens.VerificationTokenTTL,
		TokenSecret: cfg.Tokens.VerificationTokenSecret,
		PublicURL:   cfg.HTTPServer.PublicURL,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.HTTPServer.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(secure.New())
	r.Use(rateLimit.Auth(cfg.RateLimit.IPLimit, cfg.RateLimit.IPWindow))

	r.With(rateLimit.Register()).Post("/register", register.New(log, v, authService, mail))
	r.Post("/login", login.New(log, v, authService, cookie))
	r.Post("/logout", logout.New(log, authService, cookie))
	r.Post("/refresh", refresh.New(log, authService))
	r.Get("/verify", verify.New(log, authService, cfg.Tokens.VerificationTokenSecret))
	r.With(rateLimit.ResendVerificationEmail()).Post("/verify/resend", resendEmail.New(log, v, authService, mail))

	r.With(authn.New(log, authService, cookie)).Get("/me", me.New())

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
