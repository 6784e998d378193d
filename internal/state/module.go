package state

import (
	"context"
	"strings"
	"time"

	"nexo_bot/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newBackend(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Backend, error) {
	logger = logger.Named("state")
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		logger.Info("conversation state kept in memory")
		return NewMemoryBackend(), nil
	}

	client, err := NewRedisClient(addr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	logger.Info("conversation state kept in redis", zap.String("addr", addr))
	return NewRedisBackend(client, DefaultIdleTTL+DefaultPhotoTTL), nil
}

func newStore(backend Backend, cfg config.Config, logger *zap.Logger) *Store {
	loc := cfg.Location()
	return NewStore(backend, StoreOptions{
		Now: func() time.Time { return time.Now().In(loc) },
	}, logger)
}

func Module() fx.Option {
	return fx.Module(
		"state",
		fx.Provide(
			newBackend,
			newStore,
			func() *PendingStore { return NewPendingStore(DefaultPendingTTL, nil) },
		),
	)
}
