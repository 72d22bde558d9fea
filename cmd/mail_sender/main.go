package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"account_service/internal/config"
	"account_service/internal/mailer"
	"account_service/internal/rabbitmq"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)

	log.Info("starting mail sender", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	sender, err := mailer.New(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)
	if err != nil {
		log.Error("failed to init mailer", slog.String("err", err.Error()))
		os.Exit(1)
	}

	deliveries, err := msgBroker.Consume()
	if err != nil {
		log.Error("failed to start consuming", slog.String("err", err.Error()))
		os.Exit(1)
	}

	mailer.NewConsumer(log, sender).Run(ctx, deliveries)

	log.Info("Mail sender stopped")
}
