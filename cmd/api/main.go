// Command api runs the ShopSence user service.
//
//	@title						ShopSence User Service API
//	@version					1.0
//	@description				Registration, email verification, sessions and profile management.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/shopsence/user-service/internal/api"
	"github.com/shopsence/user-service/internal/api/handler"
	"github.com/shopsence/user-service/internal/core/ports"
	"github.com/shopsence/user-service/internal/core/service"
	"github.com/shopsence/user-service/internal/infrastructure/config"
	mongodb "github.com/shopsence/user-service/internal/infrastructure/db/mongo"
	redisdb "github.com/shopsence/user-service/internal/infrastructure/db/redis"
	"github.com/shopsence/user-service/internal/infrastructure/email"
	httpserver "github.com/shopsence/user-service/internal/infrastructure/http"
	"github.com/shopsence/user-service/internal/infrastructure/media"
	"github.com/shopsence/user-service/internal/infrastructure/queue"
	"github.com/shopsence/user-service/internal/infrastructure/tracking"
	"github.com/shopsence/user-service/pkg/logger"
)

const serviceName = "user-service"

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("user service stopped")
	}
	log.Info().Msg("user service stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter, err := tracking.New(tracking.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Env,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
	})
	if err != nil {
		return err
	}
	defer reporter.Close()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return err
	}
	defer disconnect(log, "mongodb", func(ctx context.Context) error { return mongoClient.Disconnect(ctx) })

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer disconnect(log, "redis", func(context.Context) error { return rdb.Close() })
	revoker := redisdb.NewRevocationList(rdb)

	// --- External providers ---
	avatars, err := media.NewS3Store(ctx, media.Config{
		Region:        cfg.S3.Region,
		Bucket:        cfg.S3.Bucket,
		Endpoint:      cfg.S3.Endpoint,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		PublicBaseURL: cfg.S3.PublicBaseURL,
		UsePathStyle:  cfg.S3.UsePathStyle,
	})
	if err != nil {
		return err
	}

	var mailer ports.Mailer = email.LogMailer{Log: logger.Component("mailer")}
	if cfg.Resend.APIKey != "" {
		resendClient, err := email.NewResendClient(email.Config{
			APIKey:  cfg.Resend.APIKey,
			From:    cfg.Resend.From,
			BaseURL: cfg.Resend.BaseURL,
		})
		if err != nil {
			return err
		}
		mailer = resendClient
	} else {
		log.Warn().Msg("RESEND_API_KEY not set, verification links are only logged")
	}

	// --- Core ---
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:       cfg.Tokens.AccessSecret,
		AccessTTL:          cfg.Tokens.AccessExpiry,
		RefreshSecret:      cfg.Tokens.RefreshSecret,
		RefreshTTL:         cfg.Tokens.RefreshExpiry,
		VerificationSecret: cfg.Tokens.VerificationSecret,
		VerificationTTL:    cfg.Tokens.VerificationExpiry,
		Issuer:             serviceName,
	})
	if err != nil {
		return err
	}

	verifier := service.NewVerificationService(tokens, mailer, cfg.Domain, logger.Component("verification"))

	// Workers outlive the HTTP server so queued mails can drain after it stops.
	dispatcher := queue.NewDispatcher(cfg.MailWorkers, verifier, logger.Component("mail-queue"))
	dispatcher.Start(context.Background())

	auth := service.NewAuthService(service.AuthDeps{
		Repo:     users,
		Tokens:   tokens,
		Media:    avatars,
		Sender:   verifier,
		Queue:    dispatcher,
		Revoker:  revoker,
		HashCost: cfg.BcryptCost,
		Log:      logger.Component("auth"),
	})
	accounts := service.NewAccountService(users, avatars, logger.Component("accounts"))

	// --- HTTP ---
	router := api.NewRouter(api.Deps{
		Auth:     auth,
		Accounts: accounts,
		Tokens:   tokens,
		Revoker:  revoker,
		Reporter: reporter,
		Health: map[string]handler.Pinger{
			"mongodb": mongodb.Pinger{DB: db},
			"redis":   redisdb.Pinger{Client: rdb},
		},
		CORSOrigins:    cfg.CORSOrigins,
		Production:     cfg.IsProduction(),
		MaxAvatarBytes: cfg.MaxAvatarBytes,
		Log:            logger.Component("http"),
	})

	srv := httpserver.NewServer(":"+cfg.Port, router, log)
	err = srv.Run(ctx, cfg.ShutdownGrace)

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancelDrain()
	if derr := dispatcher.Shutdown(drainCtx); derr != nil {
		log.Warn().Err(derr).Msg("verification queue not fully drained")
	}
	return err
}

func disconnect(log zerolog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Str("dependency", name).Msg("disconnect failed")
	}
}
