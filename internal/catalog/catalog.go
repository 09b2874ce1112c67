// Package catalog holds the variable groups available for the chosen layer
// and the user's group selection.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

const (
	MsgLoading = "Cargando variables..."
	MsgFailed  = "Error al cargar variables"
)

type Fetcher interface {
	ListGroups(ctx context.Context, layer string) ([]model.VariableGroup, error)
}

type Catalog struct {
	fetcher Fetcher
	sink    status.Sink
	logger  *slog.Logger

	mu       sync.RWMutex
	layer    string
	groups   []model.VariableGroup
	selected map[string]struct{}
}

func New(f Fetcher, sink status.Sink, log *slog.Logger) *Catalog {
	if log == nil {
		log = logger.NopSlog()
	}
	return &Catalog{fetcher: f, sink: sink, logger: log, selected: map[string]struct{}{}}
}

// Fetch replaces the catalog with the groups of layer. An empty layer is a
// no-op. On failure the previous catalog stays in place.
func (c *Catalog) Fetch(ctx context.Context, layer string) error {
	if layer == "" {
		return nil
	}
	ctx = logger.WithLayer(logger.WithOp(ctx, "fetch_groups"), layer)
	c.sink.Set(status.Busy(MsgLoading))

	groups, err := c.fetcher.ListGroups(ctx, layer)
	if err != nil {
		c.logger.WarnContext(ctx, "variable groups fetch failed", "err", err)
		c.sink.Set(status.Error(MsgFailed, err.Error()))
		return fmt.Errorf("list groups for %q: %w", layer, err)
	}

	c.mu.Lock()
	c.layer = layer
	c.groups = append([]model.VariableGroup(nil), groups...)
	c.selected = map[string]struct{}{}
	c.mu.Unlock()

	c.sink.Set(status.Success(fmt.Sprintf("Variables listas (%d grupos)", len(groups))))
	c.logger.InfoContext(ctx, "variable groups loaded", "count", len(groups))
	return nil
}

func (c *Catalog) Layer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.layer
}

func (c *Catalog) Groups() []model.VariableGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.VariableGroup(nil), c.groups...)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups)
}

// Filtered returns the groups whose name contains query, ignoring case.
// The query is not trimmed.
func (c *Catalog) Filtered(query string) []model.VariableGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return filter(c.groups, query)
}

func filter(groups []model.VariableGroup, query string) []model.VariableGroup {
	q := strings.ToLower(query)
	out := make([]model.VariableGroup, 0, len(groups))
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.Group), q) {
			out = append(out, g)
		}
	}
	return out
}

// Toggle flips the selection of group and reports the new state. Unknown
// groups are ignored.
func (c *Catalog) Toggle(group string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.known(group) {
		return false
	}
	if _, ok := c.selected[group]; ok {
		delete(c.selected, group)
		return false
	}
	c.selected[group] = struct{}{}
	return true
}

func (c *Catalog) IsSelected(group string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.selected[group]
	return ok
}

// SelectAll marks every group visible under query.
func (c *Catalog) SelectAll(query string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	visible := filter(c.groups, query)
	for _, g := range visible {
		c.selected[g.Group] = struct{}{}
	}
	return len(visible)
}

func (c *Catalog) ClearAll() {
	c.mu.Lock()
	c.selected = map[string]struct{}{}
	c.mu.Unlock()
}

// Selected returns the chosen group keys in catalog order.
func (c *Catalog) Selected() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.selected))
	for _, g := range c.groups {
		if _, ok := c.selected[g.Group]; ok {
			out = append(out, g.Group)
		}
	}
	return out
}

func (c *Catalog) known(group string) bool {
	for _, g := range c.groups {
		if g.Group == group {
			return true
		}
	}
	return false
}

// ColumnsLabel is the per-group metadata line.
func ColumnsLabel(g model.VariableGroup) string {
	if len(g.Fields) == 1 {
		return "1 columna"
	}
	return fmt.Sprintf("%d columnas", len(g.Fields))
}
