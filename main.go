package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Prototype-1/UserDirectory/config"
	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/Prototype-1/UserDirectory/internal/realtime"
	"github.com/Prototype-1/UserDirectory/internal/repository"
	"github.com/Prototype-1/UserDirectory/internal/server"
	"github.com/Prototype-1/UserDirectory/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const listenerBackoff = 5 * time.Second

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo *repository.UserRepository
	if cfg.StoreDriver == config.DriverPostgres || cfg.RealtimeDriver == config.DriverPostgres {
		var err error
		repo, err = repository.NewUserRepository(cfg.DBUrl, logger)
		if err != nil {
			logger.Fatal("Could not connect to DB", zap.Error(err))
		}
		defer repo.Close()

		if cfg.Migrate {
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Fatal("Could not apply schema", zap.Error(err))
			}
		}
	}

	var store service.Store
	switch cfg.StoreDriver {
	case config.DriverREST:
		store = repository.NewRESTRepository(cfg.SupabaseURL, cfg.SupabaseKey, cfg.RequestTimeout, logger)
	default:
		store = repo
	}

	var rdb *redis.Client
	if cfg.RealtimeDriver == config.DriverRedis || cfg.RedisRelay {
		rdb = realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Could not connect to Redis", zap.Error(err))
		}
	}

	var feed realtime.Feed
	var listener *realtime.PGListener
	switch cfg.RealtimeDriver {
	case config.DriverRedis:
		feed = realtime.NewRedisFeed(rdb, logger)
	default:
		listener = realtime.NewPGListener(repo.DB, logger)
		feed = listener

		if cfg.RedisRelay {
			relay, err := realtime.Relay(ctx, listener, realtime.NewRedisFeed(rdb, logger), model.WatchedTables, logger)
			if err != nil {
				logger.Fatal("Could not start Redis relay", zap.Error(err))
			}
			defer relay.Close()
		}
	}

	directory := service.NewDirectoryService(store, feed, logger, service.Options{
		RefreshDebounce: cfg.RefreshDebounce,
	})
	go func() {
		if err := directory.Start(ctx); err != nil {
			logger.Error("DirectoryService failed to start", zap.Error(err))
		}
	}()

	if listener != nil {
		// Notifications are lost while the listener is down, so a reconnect
		// reloads both collections.
		var feedLost atomic.Bool
		listener.OnListen = func() {
			if feedLost.Swap(false) {
				go func() {
					if err := directory.Reload(); err != nil {
						logger.Warn("Reload after reconnect failed", zap.Error(err))
					}
				}()
			}
		}
		go realtime.Supervise(ctx, listener.Run, listenerBackoff, func(err error) {
			feedLost.Store(true)
			directory.FeedFailed(err)
		}, logger)
	}

	srv := server.New(directory, logger)
	go func() {
		if err := srv.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	// graceful shutdown using os package
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("Shutdown signal received")
	cancel()

	if err := directory.Close(); err != nil {
		logger.Warn("DirectoryService close", zap.Error(err))
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}
}
