package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/snapbot/internal/adapter/filestore"
	"github.com/user/snapbot/internal/adapter/postgres"
	redisadapter "github.com/user/snapbot/internal/adapter/redis"
	"github.com/user/snapbot/internal/adapter/sqlite"
	"github.com/user/snapbot/internal/repository"
	"github.com/user/snapbot/pkg/config"
)

// openStore connects the configured session store backend.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.SessionStore, error) {
	switch cfg.StateBackend {
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		repo := redisadapter.NewSessionRepo(rdb)
		if err := repo.Ping(ctx); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("unable to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
		return repo, nil
	case "postgres":
		repo, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to postgres: %w", err)
		}
		logger.Info("postgres connection pool established")
		return repo, nil
	case "sqlite":
		repo, err := sqlite.Open(ctx, cfg.SQLiteDir)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite database opened", zap.String("path", repo.Path()))
		return repo, nil
	default:
		repo := filestore.NewSessionRepo(cfg.StateFile, logger)
		logger.Info("using state file", zap.String("path", repo.Path()))
		return repo, nil
	}
}
