// Package session composes the per-operator state: layer selector, group
// catalog, uploads, locality text, result board and the status line.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mohammed-shakir/layer-report-client/internal/backend"
	"github.com/mohammed-shakir/layer-report-client/internal/catalog"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/core/server"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/report"
	"github.com/mohammed-shakir/layer-report-client/internal/resolver"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
	"github.com/mohammed-shakir/layer-report-client/internal/upload"
)

type Deps struct {
	API          backend.API
	LayerCache   resolver.LayerCache
	Logger       *slog.Logger
	ResolverOpts []resolver.Opt
	ReportOpts   []report.Option
}

type Session struct {
	Status     *status.Channel
	Selector   *resolver.Selector
	Resolver   *resolver.Resolver
	Catalog    *catalog.Catalog
	Filter     *upload.Session
	Dictionary *upload.Session
	Workflow   *report.Workflow
	Board      *report.Board

	logger *slog.Logger

	mu       sync.RWMutex
	locality string
}

func New(d Deps) *Session {
	log := d.Logger
	if log == nil {
		log = logger.NopSlog()
	}
	ch := status.NewChannel()
	sel := resolver.NewSelector()
	board := report.NewBoard()

	ropts := append([]resolver.Opt{resolver.WithLogger(log.With("component", "resolver"))}, d.ResolverOpts...)
	wopts := append([]report.Option{report.WithLogger(log.With("component", "report"))}, d.ReportOpts...)

	return &Session{
		Status:     ch,
		Selector:   sel,
		Resolver:   resolver.New(d.API, d.LayerCache, sel, status.Tagged(ch, "resolver"), ropts...),
		Catalog:    catalog.New(d.API, status.Tagged(ch, "catalog"), log.With("component", "catalog")),
		Filter:     upload.NewSession(upload.Filter, d.API, status.Tagged(ch, "filter"), log.With("component", "filter")),
		Dictionary: upload.NewSession(upload.Dictionary, d.API, status.Tagged(ch, "dictionary"), log.With("component", "dictionary")),
		Workflow:   report.New(d.API, board, status.Tagged(ch, "report"), wopts...),
		Board:      board,
		logger:     log,
	}
}

// ResolveLayers runs the layer resolver and, when a layer ends up selected,
// loads its groups.
func (s *Session) ResolveLayers(ctx context.Context) resolver.Outcome {
	out := s.Resolver.Resolve(ctx)
	if layer := s.Selector.Selected(); layer != "" && ctx.Err() == nil {
		_ = s.Catalog.Fetch(ctx, layer)
	}
	return out
}

// SelectLayer changes the layer and reloads its groups.
func (s *Session) SelectLayer(ctx context.Context, name string) error {
	if err := s.Selector.Select(name); err != nil {
		return err
	}
	return s.Catalog.Fetch(ctx, name)
}

func (s *Session) SetLocality(v string) {
	s.mu.Lock()
	s.locality = v
	s.mu.Unlock()
}

func (s *Session) Locality() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locality
}

func (s *Session) UploadFilter(ctx context.Context, f *upload.File) error {
	return s.Filter.Upload(ctx, f)
}

func (s *Session) UploadDictionary(ctx context.Context, f *upload.File) error {
	return s.Dictionary.Upload(ctx, f)
}

// Selection reads the current operator state. Call it right before Submit.
func (s *Session) Selection() report.Selection {
	return report.Selection{
		Layer:        s.Selector.Selected(),
		FilterID:     s.Filter.ID(),
		Groups:       s.Catalog.Selected(),
		Locality:     s.Locality(),
		DictionaryID: s.Dictionary.ID(),
	}
}

func (s *Session) Submit(ctx context.Context) (model.ReportResult, error) {
	res, err := s.Workflow.Submit(ctx, s.Selection())
	if err != nil {
		return res, fmt.Errorf("submit: %w", err)
	}
	return res, nil
}

// Readiness is true once the selector offers at least one usable layer.
func (s *Session) Readiness() (bool, string) {
	return !s.Selector.Empty(), s.Resolver.State().String()
}

func (s *Session) Snapshot() server.Snapshot {
	snap := server.Snapshot{
		Status:   s.Status.Current(),
		Resolver: s.Resolver.State().String(),
		Layer:    s.Selector.Selected(),
		FilterID: s.Filter.ID(),
	}
	if res, _, ok := s.Board.Current(); ok {
		snap.Result = &res
	}
	return snap
}
