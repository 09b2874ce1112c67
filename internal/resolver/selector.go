package resolver

import (
	"fmt"
	"sync"

	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
)

// Option is one entry of the layer selector.
type Option struct {
	Name     string
	Disabled bool
}

// Selector is the layer picker state. Every population replaces the whole
// option list.
type Selector struct {
	mu       sync.RWMutex
	opts     []Option
	selected string
}

func NewSelector() *Selector { return &Selector{} }

// Populate replaces the options. The current selection survives when it is
// still present; otherwise the first enabled option is selected.
func (s *Selector) Populate(opts []Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = append([]Option(nil), opts...)

	keep := false
	first := ""
	for _, o := range s.opts {
		if o.Disabled {
			continue
		}
		if first == "" {
			first = o.Name
		}
		if o.Name == s.selected {
			keep = true
		}
	}
	if !keep {
		s.selected = first
	}
}

func (s *Selector) PopulateLayers(layers []model.Layer) {
	opts := make([]Option, 0, len(layers))
	for _, l := range layers {
		opts = append(opts, Option{Name: l.Name})
	}
	s.Populate(opts)
}

func (s *Selector) Options() []Option {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Option(nil), s.opts...)
}

// Empty reports whether nothing can be selected. A disabled placeholder
// does not count as an option.
func (s *Selector) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.opts {
		if !o.Disabled {
			return false
		}
	}
	return true
}

func (s *Selector) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *Selector) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.opts {
		if o.Name != name {
			continue
		}
		if o.Disabled {
			return fmt.Errorf("layer %q is not selectable", name)
		}
		s.selected = name
		return nil
	}
	return fmt.Errorf("unknown layer %q", name)
}
