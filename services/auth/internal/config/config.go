package config

import (
	"os"
	"strings"
	"time"

	pkgcfg "github.com/Skotchmaster/contacts_api/pkg/config"
)

const (
	TransportSMTP  = "smtp"
	TransportKafka = "kafka"
	TransportLog   = "log"
)

type Config struct {
	pkgcfg.Config

	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	CORSOrigins          []string

	NotifyTransport string
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	MailFrom        string

	RateLimit  int
	RateWindow time.Duration

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string

	JanitorInterval time.Duration
}

func Load() Config {
	base := pkgcfg.Load()
	if base.ServiceName == "" {
		base.ServiceName = "auth"
	}

	cfg := Config{
		Config: base,

		VerificationTokenTTL: pkgcfg.EnvDurationDefault("VERIFICATION_TOKEN_TTL", 2*time.Hour),
		ResetTokenTTL:        pkgcfg.EnvDurationDefault("RESET_TOKEN_TTL", 2*time.Hour),
		CORSOrigins:          pkgcfg.CSV(os.Getenv("CORS_ORIGINS")),

		NotifyTransport: strings.ToLower(pkgcfg.EnvDefault("NOTIFY_TRANSPORT", TransportLog)),
		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPPort:        pkgcfg.EnvIntDefault("SMTP_PORT", 587),
		SMTPUser:        os.Getenv("SMTP_USER"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		MailFrom:        os.Getenv("MAIL_FROM"),

		RateLimit:  pkgcfg.EnvIntDefault("RATE_LIMIT", 5),
		RateWindow: pkgcfg.EnvDurationDefault("RATE_WINDOW", time.Minute),

		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       pkgcfg.EnvDefault("S3_REGION", "us-east-1"),
		S3BaseEndpoint: os.Getenv("S3_BASE_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),

		JanitorInterval: pkgcfg.EnvDurationDefault("TOKEN_PURGE_INTERVAL", time.Hour),
	}

	pkgcfg.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgcfg.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	pkgcfg.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")
	pkgcfg.MustDistinctSecrets(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, "JWT_SECRET", "JWT_REFRESH_SECRET")

	switch cfg.NotifyTransport {
	case TransportSMTP:
		pkgcfg.MustNonEmpty(cfg.SMTPHost, "SMTP_HOST")
		pkgcfg.MustNonEmpty(cfg.MailFrom, "MAIL_FROM")
	case TransportKafka:
		if len(cfg.KafkaBrokers) == 0 {
			pkgcfg.MustNonEmpty("", "KAFKA_BROKERS")
		}
	case TransportLog:
	default:
		cfg.NotifyTransport = TransportLog
	}

	return cfg
}
