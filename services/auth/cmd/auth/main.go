package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	pkgdb "github.com/Skotchmaster/contacts_api/pkg/db"
	"github.com/Skotchmaster/contacts_api/pkg/logging"
	"github.com/Skotchmaster/contacts_api/pkg/mail"
	loggingmw "github.com/Skotchmaster/contacts_api/pkg/middleware/logging"
	"github.com/Skotchmaster/contacts_api/pkg/notify"
	"github.com/Skotchmaster/contacts_api/pkg/ratelimit"
	"github.com/Skotchmaster/contacts_api/pkg/storage"
	"github.com/Skotchmaster/contacts_api/pkg/tokens"
	"github.com/Skotchmaster/contacts_api/pkg/validate"

	authcfg "github.com/Skotchmaster/contacts_api/services/auth/internal/config"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/httpserver"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/middleware"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/migrations"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/repo"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/service"
)

func newSender(cfg authcfg.Config) (notify.Sender, func()) {
	switch cfg.NotifyTransport {
	case authcfg.TransportSMTP:
		return mail.NewSMTPSender(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			BaseURL:  cfg.BaseURL,
		}), func() {}
	case authcfg.TransportKafka:
		k := notify.NewKafkaSender(cfg.KafkaBrokers, cfg.NotifyTopic)
		return k, func() { _ = k.Close() }
	default:
		return notify.LogSender{}, func() {}
	}
}

func purgeExpiredTokens(ctx context.Context, r *repo.GormRepo, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := r.PurgeExpired(ctx)
			if err != nil {
				slog.Warn("token_purge_failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("token_purge", "deleted", n)
			}
		}
	}
}

func main() {
	if err := godotenv.Load("services/auth/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := authcfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := pkgdb.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	if err := pkgdb.Migrate(initCtx, db, migrations.FS); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}
	cancel()

	sender, closeSender := newSender(cfg)
	dispatcher := notify.NewDispatcher(sender, 0, 0, 0)

	gormRepo := &repo.GormRepo{DB: db}
	svc := &service.AuthService{
		Users:           gormRepo,
		Tokens:          gormRepo,
		Codec:           tokens.NewCodec(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Notifier:        dispatcher,
		VerificationTTL: cfg.VerificationTokenTTL,
		ResetTTL:        cfg.ResetTokenTTL,
	}

	if cfg.S3Bucket != "" {
		uploader, err := storage.NewS3Uploader(context.Background(), storage.Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicURL:    cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		svc.Avatars = uploader
	}

	deps := &httpserver.Deps{
		AuthHandler:  &httpserver.AuthHTTP{Svc: svc},
		UsersHandler: &httpserver.UsersHTTP{Svc: svc},
		Bearer:       middleware.NewBearerAuth(svc),
		Ready: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		rdb, err := ratelimit.Connect(pingCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			logger.Warn("rate_limit_disabled", "error", err)
		} else {
			defer rdb.Close()
			deps.Limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.BodyLimit("6M"))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}

	httpserver.Register(e, deps)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go purgeExpiredTokens(janitorCtx, gormRepo, cfg.JanitorInterval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("auth listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	stopJanitor()
	dispatcher.Close()
	closeSender()

	if err := pkgdb.Close(db); err != nil {
		log.Printf("db close: %v", err)
	}

	log.Println("auth stopped")
}
