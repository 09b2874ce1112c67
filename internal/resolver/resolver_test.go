package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/mohammed-shakir/layer-report-client/internal/cache/layercache"
	"github.com/mohammed-shakir/layer-report-client/internal/cache/memstore"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptFetcher returns results in order; the last one repeats.
type scriptFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
}

type fetchResult struct {
	layers []model.Layer
	err    error
}

func (f *scriptFetcher) ListLayers(ctx context.Context) ([]model.Layer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	r := f.results[i]
	return r.layers, r.err
}

func (f *scriptFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordedWait struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *recordedWait) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	return ctx.Err()
}

var errDown = errors.New("connection refused")

func layers(names ...string) []model.Layer {
	out := make([]model.Layer, 0, len(names))
	for _, n := range names {
		out = append(out, model.Layer{Name: n})
	}
	return out
}

func newCache(t *testing.T) *layercache.Cache {
	t.Helper()
	st, err := memstore.New(4)
	if err != nil {
		t.Fatalf("memstore: %v", err)
	}
	return layercache.New(st)
}

func optionNames(sel *Selector) []string {
	var out []string
	for _, o := range sel.Options() {
		out = append(out, o.Name)
	}
	return out
}

func TestResolve_LiveSuccessPopulatesAndCaches(t *testing.T) {
	ctx := context.Background()
	lc := newCache(t)
	sel := NewSelector()
	var rec status.Recorder
	f := &scriptFetcher{results: []fetchResult{{layers: layers("Manzanas_CPV24", "Entidades_CPV24")}}}

	out := New(f, lc, sel, &rec).Resolve(ctx)

	if out.State != Ready || out.Source != SourceLive {
		t.Fatalf("outcome=%+v", out)
	}
	if diff := cmp.Diff([]string{"Manzanas_CPV24", "Entidades_CPV24"}, optionNames(sel)); diff != "" {
		t.Fatalf("selector (-want +got):\n%s", diff)
	}
	if sel.Selected() != "Manzanas_CPV24" {
		t.Fatalf("selected=%q", sel.Selected())
	}
	cached, ok := lc.Load(ctx)
	if !ok {
		t.Fatal("expected cache to hold the live list")
	}
	if diff := cmp.Diff(out.Layers, cached); diff != "" {
		t.Fatalf("cache (-live +cached):\n%s", diff)
	}
	if diff := cmp.Diff([]string{MsgLoading, MsgReady}, rec.Texts()); diff != "" {
		t.Fatalf("status texts (-want +got):\n%s", diff)
	}
}

func TestResolve_FallsBackToCacheWithoutRetrying(t *testing.T) {
	ctx := context.Background()
	lc := newCache(t)
	if err := lc.Save(ctx, layers("Localidades_CPV24")); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	sel := NewSelector()
	var rec status.Recorder
	w := &recordedWait{}
	f := &scriptFetcher{results: []fetchResult{{err: errDown}}}
	r := New(f, lc, sel, &rec, WithWait(w.wait))

	out := r.Resolve(ctx)

	if out.State != Degraded || out.Source != SourceCache {
		t.Fatalf("outcome=%+v", out)
	}
	if r.Attempts() != 0 {
		t.Fatalf("attempts=%d want 0 after cache hit", r.Attempts())
	}
	if f.Calls() != 1 || len(w.delays) != 0 {
		t.Fatalf("calls=%d waits=%v", f.Calls(), w.delays)
	}
	if got := rec.Last(); got.Text != MsgFromCache || got.Kind != status.KindDegraded {
		t.Fatalf("last status=%+v", got)
	}
	if diff := cmp.Diff([]string{"Localidades_CPV24"}, optionNames(sel)); diff != "" {
		t.Fatalf("selector (-want +got):\n%s", diff)
	}
}

func TestResolve_ExhaustedRetriesLoadsDefaults(t *testing.T) {
	ctx := context.Background()
	sel := NewSelector()
	var rec status.Recorder
	w := &recordedWait{}
	f := &scriptFetcher{results: []fetchResult{{err: errDown}}}
	r := New(f, newCache(t), sel, &rec, WithWait(w.wait))

	out := r.Resolve(ctx)

	if out.State != Exhausted || out.Source != SourceDefaults {
		t.Fatalf("outcome=%+v", out)
	}
	if f.Calls() != DefaultMaxRetries+1 {
		t.Fatalf("fetch calls=%d want %d", f.Calls(), DefaultMaxRetries+1)
	}
	want := []time.Duration{1500 * time.Millisecond, 3 * time.Second, 4500 * time.Millisecond, 6 * time.Second, 7500 * time.Millisecond}
	if diff := cmp.Diff(want, w.delays); diff != "" {
		t.Fatalf("delays (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultLayers, optionNames(sel)); diff != "" {
		t.Fatalf("selector (-want +got):\n%s", diff)
	}
	if got := rec.Last(); got.Text != MsgDefaults {
		t.Fatalf("last status=%+v", got)
	}
	texts := rec.Texts()
	if !contains(texts, "Reintentando cargar capas (intento 1 de 5)...") ||
		!contains(texts, "Reintentando cargar capas (intento 5 de 5)...") {
		t.Fatalf("retry texts missing: %v", texts)
	}
}

func TestResolve_NoDefaultsShowsPlaceholder(t *testing.T) {
	sel := NewSelector()
	var rec status.Recorder
	w := &recordedWait{}
	f := &scriptFetcher{results: []fetchResult{{err: errDown}}}
	r := New(f, newCache(t), sel, &rec, WithWait(w.wait), WithDefaults(nil), WithMaxRetries(2))

	out := r.Resolve(context.Background())

	if out.State != Failed || !errors.Is(out.Err, errDown) {
		t.Fatalf("outcome=%+v", out)
	}
	opts := sel.Options()
	if len(opts) != 1 || !opts[0].Disabled || opts[0].Name != PlaceholderErr {
		t.Fatalf("options=%+v", opts)
	}
	if !sel.Empty() || sel.Selected() != "" {
		t.Fatalf("placeholder must not be selectable; selected=%q", sel.Selected())
	}
	if got := rec.Last(); got.Kind != status.KindError || got.Text != MsgFailed {
		t.Fatalf("last status=%+v", got)
	}
}

func TestResolve_ExhaustedKeepsExistingOptions(t *testing.T) {
	sel := NewSelector()
	sel.PopulateLayers(layers("Comunas_CPV24"))
	var rec status.Recorder
	w := &recordedWait{}
	f := &scriptFetcher{results: []fetchResult{{err: errDown}}}
	r := New(f, newCache(t), sel, &rec, WithWait(w.wait), WithMaxRetries(1))

	out := r.Resolve(context.Background())

	if out.State != Exhausted || out.Source != SourceKept {
		t.Fatalf("outcome=%+v", out)
	}
	if diff := cmp.Diff([]string{"Comunas_CPV24"}, optionNames(sel)); diff != "" {
		t.Fatalf("selector (-want +got):\n%s", diff)
	}
}

func TestResolve_RetryThenLiveSuccessResetsCounter(t *testing.T) {
	sel := NewSelector()
	var rec status.Recorder
	w := &recordedWait{}
	f := &scriptFetcher{results: []fetchResult{
		{err: errDown},
		{err: errDown},
		{layers: layers("Manzanas_CPV24")},
	}}
	r := New(f, newCache(t), sel, &rec, WithWait(w.wait))

	out := r.Resolve(context.Background())

	if out.State != Ready {
		t.Fatalf("outcome=%+v", out)
	}
	if r.Attempts() != 0 {
		t.Fatalf("attempts=%d want 0", r.Attempts())
	}
	if len(w.delays) != 2 {
		t.Fatalf("delays=%v want 2", w.delays)
	}
}

func TestResolve_CounterPersistsAcrossCalls(t *testing.T) {
	w := &recordedWait{}
	f := &scriptFetcher{results: []fetchResult{{err: errDown}}}
	r := New(f, newCache(t), NewSelector(), &status.Recorder{}, WithWait(w.wait), WithMaxRetries(3))

	r.Resolve(context.Background())
	if r.Attempts() != 3 {
		t.Fatalf("attempts=%d want 3", r.Attempts())
	}
	before := f.Calls()
	out := r.Resolve(context.Background())
	if out.State != Exhausted {
		t.Fatalf("outcome=%+v", out)
	}
	if f.Calls()-before != 1 {
		t.Fatalf("second resolve fetched %d times, want 1", f.Calls()-before)
	}
}

func TestStart_CancelDuringWaitReturnsIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &scriptFetcher{results: []fetchResult{{err: errDown}}}
	r := New(f, newCache(t), NewSelector(), &status.Recorder{}, WithBackoffStep(time.Hour))

	ch := r.Start(ctx)
	deadline := time.After(2 * time.Second)
	for r.State() != WaitingRetry {
		select {
		case <-deadline:
			t.Fatal("resolver never reached waiting_retry")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case out := <-ch:
		if out.State != Idle || !errors.Is(out.Err, context.Canceled) {
			t.Fatalf("outcome=%+v", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestState_String(t *testing.T) {
	if WaitingRetry.String() != "waiting_retry" || State(99).String() != "state(99)" {
		t.Fatalf("unexpected names: %s %s", WaitingRetry, State(99))
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
