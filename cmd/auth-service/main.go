package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/medcore/hospital-gateway/docs"
	"github.com/medcore/hospital-gateway/internal/api"
	"github.com/medcore/hospital-gateway/internal/core/service"
	mongostore "github.com/medcore/hospital-gateway/internal/infrastructure/db/mongo"
	redisstore "github.com/medcore/hospital-gateway/internal/infrastructure/db/redis"
	"github.com/medcore/hospital-gateway/internal/infrastructure/http/handlers"
	"github.com/medcore/hospital-gateway/internal/infrastructure/queue"
	"github.com/medcore/hospital-gateway/internal/pkg/config"
	"github.com/medcore/hospital-gateway/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                       Hospital Auth Service API
// @version                     1.0
// @description                 Login, token validation and user administration for the hospital platform.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{Service: "auth-service"})
		l.Fatal().Err(err).Msg("load configuration")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction(), Service: "auth-service"})

	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		AppName:     cfg.Mongo.AppName,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		Timeout:     cfg.Mongo.ConnectTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	if err := mongostore.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}
	users := mongostore.NewUserRepository(db)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	audit := queue.NewAuditDispatcher(cfg.Auth.AuditWorkers, mongostore.NewAuditRepository(db), logger.Component("audit"))
	audit.Start(workerCtx)

	codec := service.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, nil)
	policy := service.NewAccessPolicy(service.DefaultAccessRules(cfg.Edge.AnonymousReadResources))
	throttle := redisstore.NewLoginThrottle(rdb, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginLockout)
	authService := service.NewAuthService(users, codec, policy, throttle, audit, logger.Component("auth"))

	if err := bootstrapAdmin(ctx, authService, cfg.Auth, log); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin")
	}

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		Policy:      policy,
		ReadyChecks: map[string]handlers.Check{
			"mongo": handlers.MongoCheck(db),
			"redis": handlers.RedisCheck(rdb),
		},
		Swagger: !cfg.IsProduction(),
	}, log)

	go func() {
		log.Info().Str("port", cfg.AuthPort).Msg("auth service listening")
		if err := e.Start(":" + cfg.AuthPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	stopWorkers()
	audit.Wait()
}

type adminEnsurer interface {
	EnsureAdmin(ctx context.Context, username, password, email string) (bool, error)
}

// bootstrapAdmin seeds the configured administrator account. It is a no-op
// when no bootstrap username is set.
func bootstrapAdmin(ctx context.Context, svc adminEnsurer, auth config.AuthConfig, log zerolog.Logger) error {
	if auth.BootstrapAdminUsername == "" {
		return nil
	}
	created, err := svc.EnsureAdmin(ctx, auth.BootstrapAdminUsername, auth.BootstrapAdminPassword, auth.BootstrapAdminEmail)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("username", auth.BootstrapAdminUsername).Msg("bootstrap admin created")
	}
	return nil
}
