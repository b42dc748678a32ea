package infra

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/adapter/store"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/port"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
)

// InitDedupStore builds the processed-transaction store selected by
// store.backend. The file backend is the default; redis keeps the set in a
// shared server instead of a local snapshot file.
func InitDedupStore(ctx context.Context, log applog.AppLogger, v *validator.Validate) (port.DedupStore, error) {
	if v == nil {
		v = validator.New()
	}

	switch backend := viper.GetString("store.backend"); backend {
	case "", "file":
		cfg := store.FileConfig{Path: viper.GetString("store.file.path")}
		fs, err := store.NewFileStore(log, cfg, v)
		if err != nil {
			return nil, fmt.Errorf("infra: failed to init file store: %w", err)
		}
		return fs, nil
	case "redis":
		cfg := store.RedisConfig{
			Host:               viper.GetString("redis.host"),
			Port:               viper.GetString("redis.port"),
			Password:           viper.GetString("redis.password"),
			DB:                 viper.GetInt("redis.db"),
			UseTLS:             viper.GetBool("redis.use_tls"),
			PoolSize:           viper.GetInt("redis.pool_size"),
			MaxRetries:         viper.GetInt("redis.max_retries"),
			DialTimeoutSeconds: viper.GetInt("redis.dial_timeout_seconds"),
			DedupKey:           viper.GetString("redis.dedup_key"),
		}
		rs, err := store.NewRedisStore(ctx, log, cfg, v)
		if err != nil {
			return nil, fmt.Errorf("infra: failed to init redis store: %w", err)
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("infra: unknown store backend %q", backend)
	}
}
