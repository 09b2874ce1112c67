// Package resolver acquires the layer list through a tiered fallback:
// live fetch, cached snapshot, bounded retries, static defaults and finally
// an explicit unusable placeholder.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/core/observability"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

const (
	DefaultMaxRetries = 5
	DefaultStep       = 1500 * time.Millisecond
)

const (
	MsgLoading     = "Cargando capas..."
	MsgReady       = "Capas listas"
	MsgFromCache   = "Capas cargadas desde caché"
	MsgDefaults    = "Capas por defecto cargadas"
	MsgFailed      = "Error al cargar capas"
	MsgKeptCurrent = "No se pudo actualizar las capas; se mantiene la lista actual"
	PlaceholderErr = "Error al cargar capas"
)

// DefaultLayers is the fixed fallback set offered when the backend cannot
// be reached and nothing was ever cached.
var DefaultLayers = []string{
	"Regiones_CPV24",
	"Provincias_CPV24",
	"Comunas_CPV24",
	"Distritos_CPV24",
	"Localidades_CPV24",
	"Entidades_CPV24",
	"Manzanas_CPV24",
}

type State int

const (
	Idle State = iota
	Fetching
	WaitingRetry
	Ready
	Degraded
	Exhausted
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case WaitingRetry:
		return "waiting_retry"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source names where the selector contents came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceDefaults Source = "defaults"
	SourceKept     Source = "kept"
	SourceNone     Source = "none"
)

type Outcome struct {
	State    State
	Source   Source
	Layers   []model.Layer
	Attempts int
	Err      error
}

type Fetcher interface {
	ListLayers(ctx context.Context) ([]model.Layer, error)
}

type LayerCache interface {
	Save(ctx context.Context, layers []model.Layer) error
	Load(ctx context.Context) ([]model.Layer, bool)
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

func timerWait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Resolver struct {
	fetcher  Fetcher
	cache    LayerCache
	selector *Selector
	sink     status.Sink
	logger   *slog.Logger

	maxRetries int
	step       time.Duration
	defaults   []string
	wait       WaitFunc

	mu      sync.Mutex
	state   State
	attempt int
}

type Opt func(*Resolver)

func WithMaxRetries(n int) Opt {
	return func(r *Resolver) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithBackoffStep sets the per-attempt delay unit; attempt n waits n*step.
func WithBackoffStep(d time.Duration) Opt {
	return func(r *Resolver) {
		if d >= 0 {
			r.step = d
		}
	}
}

func WithDefaults(names []string) Opt {
	return func(r *Resolver) { r.defaults = append([]string(nil), names...) }
}

func WithWait(w WaitFunc) Opt {
	return func(r *Resolver) {
		if w != nil {
			r.wait = w
		}
	}
}

func WithLogger(l *slog.Logger) Opt {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(f Fetcher, c LayerCache, sel *Selector, sink status.Sink, opts ...Opt) *Resolver {
	r := &Resolver{
		fetcher:    f,
		cache:      c,
		selector:   sel,
		sink:       sink,
		logger:     logger.NopSlog(),
		maxRetries: DefaultMaxRetries,
		step:       DefaultStep,
		defaults:   DefaultLayers,
		wait:       timerWait,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Attempts is the retry counter. It resets only after a live success.
func (r *Resolver) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

func (r *Resolver) MaxRetries() int { return r.maxRetries }

func (r *Resolver) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Start runs Resolve in the background and delivers its outcome.
func (r *Resolver) Start(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		ch <- r.Resolve(ctx)
	}()
	return ch
}

// Resolve drives one resolution cycle to a terminal state. Only ctx
// cancellation interrupts it.
func (r *Resolver) Resolve(ctx context.Context) Outcome {
	ctx = logger.WithOp(ctx, "resolve_layers")

	for {
		r.setState(Fetching)
		r.sink.Set(status.Busy(MsgLoading))

		layers, err := r.fetcher.ListLayers(ctx)
		if err == nil {
			return r.applyLive(ctx, layers)
		}
		if ctx.Err() != nil {
			return r.canceled(ctx)
		}
		r.logger.WarnContext(ctx, "live layer fetch failed", "err", err)

		if cached, ok := r.cache.Load(ctx); ok {
			return r.applyCache(ctx, cached, err)
		}

		n, ok := r.nextAttempt()
		if !ok {
			return r.exhaust(ctx, err)
		}
		delay := time.Duration(n) * r.step
		r.setState(WaitingRetry)
		r.sink.Set(status.Info(fmt.Sprintf("Reintentando cargar capas (intento %d de %d)...", n, r.maxRetries)))
		observability.IncRetry()
		r.logger.InfoContext(ctx, "layer fetch retry scheduled", "attempt", n, "delay", delay)

		if werr := r.wait(ctx, delay); werr != nil {
			return r.canceled(ctx)
		}
	}
}

func (r *Resolver) nextAttempt() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempt >= r.maxRetries {
		return r.attempt, false
	}
	r.attempt++
	return r.attempt, true
}

func (r *Resolver) applyLive(ctx context.Context, layers []model.Layer) Outcome {
	if err := r.cache.Save(ctx, layers); err != nil {
		r.logger.WarnContext(ctx, "layer cache save failed", "err", err)
	}
	r.mu.Lock()
	r.attempt = 0
	r.state = Ready
	r.mu.Unlock()

	r.selector.PopulateLayers(layers)
	r.sink.Set(status.Success(MsgReady))
	observability.IncResolution(string(SourceLive))
	r.logger.InfoContext(ctx, "layers resolved", "source", SourceLive, "count", len(layers))
	return Outcome{State: Ready, Source: SourceLive, Layers: layers}
}

func (r *Resolver) applyCache(ctx context.Context, layers []model.Layer, cause error) Outcome {
	r.setState(Degraded)
	r.selector.PopulateLayers(layers)
	r.sink.Set(status.Degraded(MsgFromCache))
	observability.IncResolution(string(SourceCache))
	r.logger.InfoContext(ctx, "layers resolved", "source", SourceCache, "count", len(layers))
	return Outcome{State: Degraded, Source: SourceCache, Layers: layers, Attempts: r.Attempts(), Err: cause}
}

func (r *Resolver) exhaust(ctx context.Context, cause error) Outcome {
	attempts := r.Attempts()
	source := SourceKept
	var layers []model.Layer

	if r.selector.Empty() && len(r.defaults) > 0 {
		layers = make([]model.Layer, 0, len(r.defaults))
		for _, name := range r.defaults {
			layers = append(layers, model.Layer{Name: name})
		}
		r.selector.PopulateLayers(layers)
		source = SourceDefaults
	}

	if r.selector.Empty() {
		r.selector.Populate([]Option{{Name: PlaceholderErr, Disabled: true}})
		r.setState(Failed)
		r.sink.Set(status.Error(MsgFailed, errDetail(cause)))
		observability.IncResolution(string(SourceNone))
		r.logger.ErrorContext(ctx, "layer resolution failed", "attempts", attempts, "err", cause)
		return Outcome{State: Failed, Source: SourceNone, Attempts: attempts, Err: cause}
	}

	r.setState(Exhausted)
	if source == SourceDefaults {
		r.sink.Set(status.Degraded(MsgDefaults))
	} else {
		r.sink.Set(status.Degraded(MsgKeptCurrent))
	}
	observability.IncResolution(string(source))
	r.logger.WarnContext(ctx, "layer retries exhausted", "source", source, "attempts", attempts, "err", cause)
	return Outcome{State: Exhausted, Source: source, Layers: layers, Attempts: attempts, Err: cause}
}

func (r *Resolver) canceled(ctx context.Context) Outcome {
	r.setState(Idle)
	r.logger.DebugContext(ctx, "layer resolution canceled")
	return Outcome{State: Idle, Source: SourceNone, Attempts: r.Attempts(), Err: ctx.Err()}
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
