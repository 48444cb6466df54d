package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/contacts_api/pkg/config"
	"github.com/Skotchmaster/contacts_api/pkg/logging"
	"github.com/Skotchmaster/contacts_api/pkg/mail"

	"github.com/Skotchmaster/contacts_api/services/mailer/internal/consumer"
)

func main() {
	if err := godotenv.Load("services/mailer/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := pkgcfg.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "mailer"
	}
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatalf("missing required env KAFKA_BROKERS")
	}
	smtpHost := os.Getenv("SMTP_HOST")
	mailFrom := os.Getenv("MAIL_FROM")
	pkgcfg.MustNonEmpty(smtpHost, "SMTP_HOST")
	pkgcfg.MustNonEmpty(mailFrom, "MAIL_FROM")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	reader := consumer.NewReader(cfg.KafkaBrokers, cfg.NotifyTopic, pkgcfg.EnvDefault("KAFKA_GROUP_ID", "mailer"))
	defer reader.Close()

	c := &consumer.Consumer{
		Reader: reader,
		Sender: mail.NewSMTPSender(mail.Config{
			Host:     smtpHost,
			Port:     pkgcfg.EnvIntDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     mailFrom,
			BaseURL:  cfg.BaseURL,
		}),
		Log: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("mailer_started", "topic", cfg.NotifyTopic)
	err := c.Run(ctx)
	logger.Info("mailer_stopped", "error", err)
}
