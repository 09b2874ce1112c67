// Package layercache persists the last known-good layer list in a single
// cache slot.
package layercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/layer-report-client/internal/cache"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
)

const DefaultKey = "layers:last-known"

const envelopeVersion = 1

var errCorrupt = errors.New("layer snapshot checksum mismatch")

type envelope struct {
	Version int             `json:"v"`
	Sum     uint64          `json:"sum"`
	SavedAt time.Time       `json:"saved_at"`
	Layers  json.RawMessage `json:"layers"`
}

type Cache struct {
	store     cache.Store
	key       string
	logger    *slog.Logger
	opTimeout time.Duration
	now       func() time.Time
}

type Option func(*Cache)

func WithKey(key string) Option {
	return func(c *Cache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithOpTimeout bounds each slot access.
func WithOpTimeout(d time.Duration) Option {
	return func(c *Cache) { c.opTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(store cache.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		key:    DefaultKey,
		logger: logger.NopSlog(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

// Save overwrites the slot with layers. Empty lists are never stored.
func (c *Cache) Save(ctx context.Context, layers []model.Layer) error {
	if len(layers) == 0 {
		return errors.New("refusing to cache an empty layer list")
	}
	raw, err := json.Marshal(layers)
	if err != nil {
		return fmt.Errorf("encode layers: %w", err)
	}
	b, err := json.Marshal(envelope{
		Version: envelopeVersion,
		Sum:     xxhash.Sum64(raw),
		SavedAt: c.now().UTC(),
		Layers:  raw,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()
	if err := c.store.Set(ctx, c.key, b); err != nil {
		return fmt.Errorf("layer cache save: %w", err)
	}
	return nil
}

// Load returns the cached list. Absent, empty, unreadable or corrupt
// snapshots all read as (nil, false).
func (c *Cache) Load(ctx context.Context) ([]model.Layer, bool) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	b, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.logger.WarnContext(ctx, "layer cache read failed", "driver", c.store.Driver(), "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	layers, savedAt, err := decode(b)
	if err != nil {
		c.logger.WarnContext(ctx, "discarding layer snapshot", "driver", c.store.Driver(), "err", err)
		return nil, false
	}
	if len(layers) == 0 {
		return nil, false
	}
	c.logger.DebugContext(ctx, "layer snapshot loaded",
		"driver", c.store.Driver(),
		"count", len(layers),
		"saved_at", savedAt)
	return layers, true
}

func decode(b []byte) ([]model.Layer, time.Time, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, time.Time{}, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}
	if xxhash.Sum64(env.Layers) != env.Sum {
		return nil, time.Time{}, errCorrupt
	}
	var layers []model.Layer
	if err := json.Unmarshal(env.Layers, &layers); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode layers: %w", err)
	}
	return layers, env.SavedAt, nil
}
