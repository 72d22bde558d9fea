package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"

	"account_service/internal/account"
	"account_service/internal/config"
	confirmPasswordReset "account_service/internal/http_server/handlers/confirm_password_reset"
	"account_service/internal/http_server/handlers/login"
	"account_service/internal/http_server/handlers/register"
	requestPasswordReset "account_service/internal/http_server/handlers/request_password_reset"
	resendVerification "account_service/internal/http_server/handlers/resend_verification"
	verifyAccount "account_service/internal/http_server/handlers/verify_account"
	"account_service/internal/lib/hash"
	"account_service/internal/lib/jwt"
	"account_service/internal/lib/otp"
	"account_service/internal/notify"
	"account_service/internal/rabbitmq"
	"account_service/internal/secrets"
	"account_service/internal/storage/postgres"
	redisStorage "account_service/internal/storage/redis"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting account service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	signingKey, err := secrets.SigningKey(ctx, cfg)
	if err != nil {
		log.Error("failed to resolve signing key", slog.String("err", err.Error()))
		os.Exit(1)
	}

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	codeStore, err := redisStorage.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer codeStore.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	accounts := account.New(
		log,
		storage,
		storage,
		otp.New(codeStore),
		jwt.New(signingKey, cfg.Tokens.AccessTokenTTL),
		hash.New(),
		notify.New(log, msgBroker),
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.VerificationCodeTTL,
		cfg.Tokens.ResetCodeTTL,
	)

	router := setupRouter(log, accounts)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(log *slog.Logger, accounts *account.Account) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()

	r.Post("/register",
		register.New(log, validate, accounts),
	)
	r.Post("/register/resend-verification",
		resendVerification.New(log, validate, accounts),
	)
	r.Post("/register/verify-account",
		verifyAccount.New(log, validate, accounts),
	)
	r.Post("/auth/login",
		login.New(log, validate, accounts),
	)
	r.Post("/auth/request-password-reset",
		requestPasswordReset.New(log, validate, accounts),
	)
	r.Post("/auth/confirm-password-reset",
		confirmPasswordReset.New(log, validate, accounts),
	)

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
	}

	return log
}
