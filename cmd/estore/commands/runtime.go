package commands

import (
	"context"
	"fmt"

	"estore/internal/event"
	"estore/internal/infra/analytics"
	"estore/internal/infra/cache"
	"estore/internal/infra/storage"
	"estore/internal/logger"
	"estore/internal/server"
	"estore/internal/usecase"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// コマンド共通の組み立て結果
type runtime struct {
	uc    server.Usecases
	rdb   *redis.Client
	store storage.DocumentStore
}

func buildRuntime(ctx context.Context) (*runtime, error) {
	gdb, err := openDB()
	if err != nil {
		return nil, err
	}

	// redisは任意。無ければキャッシュもpubsubも使わない
	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	var productCache usecase.ProductCache
	if rdb != nil {
		productCache = cache.NewProductCache(rdb, cfg.Redis.CacheTTL)
	}

	store, err := storage.New(ctx, cfg.AWS, cfg.Report.LocalDir)
	if err != nil {
		return nil, err
	}

	return &runtime{
		uc: server.BuildUsecases(cfg, gdb, server.Integrations{
			ProductCache: productCache,
			ReportStore:  store,
		}),
		rdb:   rdb,
		store: store,
	}, nil
}

// redisがあればredis経由、無ければlocalに直接配る
func (rt *runtime) newDispatcher(local event.Subscriber) *event.Dispatcher {
	d := event.NewDispatcher(rt.uc.Repos.Outbox(), cfg.Outbox.Interval, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts).
		WithClaimLease(cfg.Outbox.ClaimLease)
	if rt.rdb != nil {
		d.Subscribe(newRedisBridge(rt.rdb))
	} else if local != nil {
		d.Subscribe(local)
	}

	ga := analytics.NewClient(cfg.Analytics, nil)
	if ga.Enabled() {
		d.Subscribe(analytics.NewSubscriber(ga))
	} else {
		logger.Debug("analytics disabled", zap.String("endpoint", cfg.Analytics.Endpoint))
	}
	return d
}

func (rt *runtime) close() {
	if rt.rdb != nil {
		if err := rt.rdb.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}
}
