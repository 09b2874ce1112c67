package cache

import (
	"context"
	"fmt"

	"github.com/mohammed-shakir/layer-report-client/internal/cache/memstore"
	"github.com/mohammed-shakir/layer-report-client/internal/cache/redisstore"
	"github.com/mohammed-shakir/layer-report-client/internal/cache/sqlitestore"
	"github.com/mohammed-shakir/layer-report-client/internal/core/config"
)

// Open builds the Store named by cfg.Driver.
func Open(ctx context.Context, cfg config.CacheCfg) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		s, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite cache: %w", err)
		}
		return s, nil
	case "redis":
		s, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return s, nil
	case "memory":
		s, err := memstore.New(cfg.MemorySize)
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q (want sqlite|redis|memory)", cfg.Driver)
	}
}
