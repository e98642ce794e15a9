package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/chatter/chatter-backend/handlers"
	"github.com/chatter/chatter-backend/internal/config"
	"github.com/chatter/chatter-backend/internal/database"
	"github.com/chatter/chatter-backend/internal/server"
	"github.com/chatter/chatter-backend/internal/users"
	"github.com/chatter/chatter-backend/pkg/logger"
	"github.com/chatter/chatter-backend/pkg/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/GraphQL server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	started := time.Now()
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	checks := map[string]handlers.Check{}

	var store database.Store
	if cfg.MongoDB.InMemory() {
		mem := database.NewMemoryStore(users.Collection)
		if err := users.EnsureIndexes(ctx, mem); err != nil {
			return fmt.Errorf("memory store indexes: %w", err)
		}
		checks["store"] = mem.Ping
		store = mem
		logger.Warnf("using in-memory document store; data is lost on exit")
	} else {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, cfg.MongoDB.ConnectAttempts)
		if err != nil {
			return fmt.Errorf("could not connect to MongoDB after %d attempts: %w", cfg.MongoDB.ConnectAttempts, err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		ms := database.NewMongoStore(client.Database(cfg.MongoDB.Database).Collection(users.Collection))
		if err := users.EnsureIndexes(ctx, ms); err != nil {
			logger.Warnf("failed to ensure unique email index: %v", err)
		}
		checks["store"] = ms.Ping
		store = ms
		logger.Infof("connected to MongoDB database %q", cfg.MongoDB.Database)
	}
	store = database.NewInstrumentedStore(store, users.Collection)

	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		} else {
			logger.Infof("connected to Redis: %s", addr)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	usersSvc := users.NewService(users.NewRepository(store))
	engine, err := server.New(server.Options{Config: cfg, Users: usersSvc, Redis: rdb, Checks: checks, Started: started})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting chatter on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
