package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mohammed-shakir/layer-report-client/internal/backend"
	"github.com/mohammed-shakir/layer-report-client/internal/cache"
	"github.com/mohammed-shakir/layer-report-client/internal/cache/keys"
	"github.com/mohammed-shakir/layer-report-client/internal/cache/layercache"
	"github.com/mohammed-shakir/layer-report-client/internal/cache/memstore"
	"github.com/mohammed-shakir/layer-report-client/internal/core/config"
	"github.com/mohammed-shakir/layer-report-client/internal/core/httpclient"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/metrics"
	"github.com/mohammed-shakir/layer-report-client/internal/resolver"
	"github.com/mohammed-shakir/layer-report-client/internal/session"
	"github.com/mohammed-shakir/layer-report-client/internal/statusevents"
)

// app is the wired client shared by every subcommand.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	store   cache.Store
	sess    *session.Session
	metrics *metrics.Provider
	events  *statusevents.Publisher
}

func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "reportctl",
	}, logOut)
	log := logger.NewSlog(&zl)
	a := &app{cfg: cfg, log: log}

	if cfg.MetricsEnabled {
		p, err := metrics.Init(metrics.Config{Version: Version})
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		a.metrics = p
	}

	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		log.Warn("layer cache unavailable, using process memory", "driver", cfg.Cache.Driver, "err", err)
		if store, err = memstore.New(cfg.Cache.MemorySize); err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
	}
	a.store = store
	lc := layercache.New(store,
		layercache.WithKey(keys.LayerSlot(cfg.Cache.Key, cfg.BackendURL)),
		layercache.WithOpTimeout(cfg.Cache.OpTimeout),
		layercache.WithLogger(log.With("component", "layercache")),
	)

	api, err := backend.New(log.With("component", "backend"), httpclient.NewOutbound(), cfg.BackendURL)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("backend client: %w", err)
	}

	a.sess = session.New(session.Deps{
		API:        api,
		LayerCache: lc,
		Logger:     log,
		ResolverOpts: []resolver.Opt{
			resolver.WithMaxRetries(cfg.ResolveMaxRetries),
			resolver.WithBackoffStep(cfg.ResolveBackoff),
		},
	})

	if cfg.StatusEvents.Enabled {
		pub, err := statusevents.NewPublisher(cfg.StatusEvents.BrokerList(), cfg.StatusEvents.Topic,
			logger.NewID(), cfg.StatusEvents.Queue, log.With("component", "statusevents"))
		if err != nil {
			log.Warn("status events disabled", "err", err)
		} else {
			pub.Attach(a.sess.Status)
			a.events = pub
		}
	}

	log.Debug("client ready", "backend", cfg.BackendURL, "cache", store.Driver(), "version", Version)
	return a, nil
}

func (a *app) Close() error {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("close status events", "err", err)
		}
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	return nil
}

func (a *app) metricsHandler() http.Handler {
	if a.metrics == nil {
		return nil
	}
	return a.metrics.Handler()
}
