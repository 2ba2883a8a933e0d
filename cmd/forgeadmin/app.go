package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	admin "github.com/saritasa-nest/saritasa-forge-admin-sub001"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/config"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/store"
)

// app holds what the commands share for one invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	service *admin.Service

	redis     *redis.Client
	stopRedis func() error
}

func newApp(ctx context.Context, configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger(logOut)

	dialect, err := store.ParseDialect(cfg.Database.Dialect)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(dialect, cfg.Database.DSN, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if dialect == store.SQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	policy, err := cfg.AllowListPolicy()
	if err != nil {
		return nil, err
	}
	service, err := admin.NewServiceWithConfig(db, sampleOptions(policy), admin.Config{
		MaxNavigationDepth: cfg.Admin.MaxNavigationDepth,
		DefaultPageSize:    cfg.Admin.DefaultPageSize,
		MaxPageSize:        cfg.Admin.MaxPageSize,
		SplitSearchTerms:   cfg.Admin.SplitSearchTerms,
	}, sampleModels()...)
	if err != nil {
		return nil, err
	}
	if err := service.SetLogger(log); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, db: db, service: service}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		stop, err := service.EnableRedisInvalidation(ctx, a.redis, cfg.Redis.Channel)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.stopRedis = stop
	}
	return a, nil
}

// entity resolves a url identifier such as "catalog-items".
func (a *app) entity(ctx context.Context, id string) (*admin.EntityMetadata, error) {
	e, err := a.service.GetEntityByStringID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w (see 'forgeadmin metadata' for the available entities)", err)
	}
	return e, nil
}

func (a *app) Close() error {
	if a.stopRedis != nil {
		if err := a.stopRedis(); err != nil {
			a.logger.Warn("Failed to stop metadata invalidation listener", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
