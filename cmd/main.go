package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harold2001/financer-manager-api/internal/command"
	"github.com/harold2001/financer-manager-api/internal/config"
	"github.com/harold2001/financer-manager-api/internal/handler"
	"github.com/harold2001/financer-manager-api/internal/identity"
	"github.com/harold2001/financer-manager-api/internal/query"
	"github.com/harold2001/financer-manager-api/internal/repository"
	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/events"
	"github.com/harold2001/financer-manager-api/shared/logger"
	"github.com/harold2001/financer-manager-api/shared/models"
	redisClient "github.com/harold2001/financer-manager-api/shared/redis"
)

const (
	eventStreamMaxLen = 10000
	purgeGroup        = "transaction-purge"
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Document store
	db, err := openStore(ctx, cfg)
	if err != nil {
		logg.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer db.Close()

	// Redis backs the view caches and the event streams. Only the memory
	// driver may run without it.
	var (
		publisher command.EventPublisher
		local     *events.LocalPublisher
		txCache   repository.ViewCache[models.TransactionRecord]
		userCache repository.ViewCache[models.UserProfile]
		checks    = []query.Check{{Name: "store", Pinger: db}}
	)
	redis, err := redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	switch {
	case err == nil:
		defer redis.Close()
		publisher = events.NewPublisher(redis.Client, eventStreamMaxLen)
		txCache = redisClient.NewViewCache[models.TransactionRecord](redis.Client, repository.TransactionViewKeyPrefix, cfg.CacheTTL, logg)
		userCache = redisClient.NewViewCache[models.UserProfile](redis.Client, repository.UserViewKeyPrefix, cfg.CacheTTL, logg)
		checks = append(checks, query.Check{Name: "redis", Pinger: redis})
	case cfg.StoreDriver == config.DriverMemory:
		logg.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, running without cache and with in-process events")
		local = events.NewLocalPublisher()
		publisher = local
	default:
		logg.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
	}

	provider, err := identity.NewJWTProvider(db.Collection(identity.CredentialsCollection), identity.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to create identity provider")
	}

	// CQRS: write repos, cached read repos
	txWrite := repository.NewTransactionWriteRepository(db)
	txRead := repository.NewTransactionReadRepository(db, txCache)
	userWrite := repository.NewUserWriteRepository(db)
	userRead := repository.NewUserReadRepository(db, userCache)

	// Command + Query services
	txCmd := command.NewTransactionCommandService(txWrite, txRead, publisher, logg)
	userCmd := command.NewUserCommandService(userWrite, userRead, publisher, logg)
	authCmd := command.NewAuthCommandService(provider, userCmd, logg)

	txQry := query.NewTransactionQueryService(txRead)
	userQry := query.NewUserQueryService(userRead)
	authQry := query.NewAuthQueryService(provider, userQry, checks...)

	// Deleting an account purges that user's transactions.
	if local != nil {
		local.Subscribe(events.UserEventsStream, txCmd.HandleUserEvent)
	} else {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    purgeGroup,
			Consumer: cfg.EventConsumer,
			Stream:   events.UserEventsStream,
			Handler:  txCmd.HandleUserEvent,
		}, logg)
		go func() {
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error().Err(err).Msg("user event subscriber stopped")
			}
		}()
	}

	router := handler.NewRouter(handler.Handlers{
		Auth:         handler.NewAuthHandler(authCmd, authQry, logg),
		Users:        handler.NewUserHandler(userCmd, authCmd, userQry, logg),
		Transactions: handler.NewTransactionHandler(txCmd, txQry, logg),
	}, provider, logg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logg.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("finance manager api starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logg.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := store.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	default:
		s, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
