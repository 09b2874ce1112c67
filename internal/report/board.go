package report

import (
	"sync"

	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
)

// Board holds the last rendered result. It is only ever replaced whole.
type Board struct {
	mu  sync.RWMutex
	res model.ReportResult
	id  string
	has bool
}

func NewBoard() *Board { return &Board{} }

func (b *Board) Replace(id string, r model.ReportResult) {
	b.mu.Lock()
	b.res, b.id, b.has = r, id, true
	b.mu.Unlock()
}

// Current returns the shown result and the id of the submission that
// produced it.
func (b *Board) Current() (model.ReportResult, string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.res, b.id, b.has
}
