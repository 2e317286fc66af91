package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ventamovil/session-core/internal/accounts"
	"github.com/ventamovil/session-core/internal/api"
	"github.com/ventamovil/session-core/internal/infrastructure/config"
	"github.com/ventamovil/session-core/internal/stubauth"
	"github.com/ventamovil/session-core/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	var (
		repo accounts.Repository
		db   *mongo.Database
	)
	if cfg.Stub.Mongo.URI != "" {
		client, database, err := accounts.ConnectMongo(ctx, accounts.MongoConfig{
			URI:      cfg.Stub.Mongo.URI,
			Database: cfg.Stub.Mongo.Database,
		})
		if err != nil {
			logg.Fatal().Err(err).Msg("mongo connection failed")
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()
		db = database
		repo = accounts.NewMongoRepository(database)
		logg.Info().Str("database", cfg.Stub.Mongo.Database).Msg("using mongo account directory")
	} else {
		memory := accounts.NewMemoryRepository()
		if err := accounts.SeedDemo(ctx, memory); err != nil {
			logg.Fatal().Err(err).Msg("failed to seed demo accounts")
		}
		repo = memory
		logg.Info().Msg("using in-memory account directory with demo seed")
	}

	svc := stubauth.NewService(repo, cfg.Stub.JWTSecret, cfg.Stub.TokenTTL, logger.Component("stubauth"))
	e := api.NewRouter(svc, db, logger.Component("api"))

	go func() {
		if err := e.Start(":" + cfg.Stub.Port); err != nil && err != http.ErrServerClosed {
			logg.Fatal().Err(err).Msg("server stopped")
		}
	}()
	logg.Info().Str("port", cfg.Stub.Port).Msg("auth stub listening")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Error().Err(err).Msg("graceful shutdown failed")
	}
}
