// Package report validates the operator's selection, submits it and keeps
// the last successful result on a Board.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mohammed-shakir/layer-report-client/internal/backend"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/core/observability"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

const (
	MsgNeedFilter   = "Carga un filtro primero"
	MsgNeedLocality = "Ingresa la localidad"
	MsgNeedGroups   = "Selecciona al menos un grupo"
	MsgNeedLayer    = "Selecciona una capa"
	MsgGenerating   = "Generando reportes..."
	MsgFailed       = "Error al generar"
	MsgReady        = "Reportes listos"
)

// Selection is the operator state read immediately before a submit.
type Selection struct {
	Layer        string
	FilterID     string
	Groups       []string
	Locality     string
	DictionaryID string
}

// ValidationError is a selection rejected before any request was sent.
type ValidationError struct {
	Field   status.Focus
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid selection (%s): %s", e.Field, e.Message)
}

// Validate applies the checks in order; the first failure wins.
func Validate(sel Selection) error {
	if ve := check(sel); ve != nil {
		return ve
	}
	return nil
}

func check(sel Selection) *ValidationError {
	switch {
	case sel.FilterID == "":
		return &ValidationError{Field: status.FocusFilter, Message: MsgNeedFilter}
	case strings.TrimSpace(sel.Locality) == "":
		return &ValidationError{Field: status.FocusLocality, Message: MsgNeedLocality}
	case len(sel.Groups) == 0:
		return &ValidationError{Field: status.FocusGroups, Message: MsgNeedGroups}
	case sel.Layer == "":
		return &ValidationError{Field: status.FocusLayer, Message: MsgNeedLayer}
	}
	return nil
}

type Generator interface {
	GenerateReport(ctx context.Context, req model.ReportRequest) (backend.ReportResponse, error)
}

type Workflow struct {
	api    Generator
	board  *Board
	sink   status.Sink
	logger *slog.Logger
	newID  func() string
}

type Option func(*Workflow)

func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithIDs overrides submission id generation.
func WithIDs(f func() string) Option {
	return func(w *Workflow) {
		if f != nil {
			w.newID = f
		}
	}
}

func New(api Generator, board *Board, sink status.Sink, opts ...Option) *Workflow {
	w := &Workflow{
		api:    api,
		board:  board,
		sink:   sink,
		logger: logger.NopSlog(),
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Workflow) Board() *Board { return w.board }

// Submit validates sel and, when valid, issues exactly one report request.
// Identical selections are not de-duplicated. On failure the board keeps
// whatever it showed before.
func (w *Workflow) Submit(ctx context.Context, sel Selection) (model.ReportResult, error) {
	if ve := check(sel); ve != nil {
		w.sink.Set(status.Status{Kind: status.KindError, Text: ve.Message, Focus: ve.Field})
		observability.IncSubmission("invalid")
		return model.ReportResult{}, ve
	}

	id := w.newID()
	ctx = logger.WithOp(logger.WithRequestID(ctx, id), "report")
	ctx = logger.WithLayer(ctx, sel.Layer)

	req := model.ReportRequest{
		Layer:        sel.Layer,
		FilterID:     sel.FilterID,
		Groups:       append([]string(nil), sel.Groups...),
		Locality:     strings.TrimSpace(sel.Locality),
		DictionaryID: sel.DictionaryID,
	}
	w.sink.Set(status.Busy(MsgGenerating))
	w.logger.InfoContext(ctx, "submitting report", "groups", len(req.Groups), "locality", req.Locality)

	resp, err := w.api.GenerateReport(ctx, req)
	if err != nil {
		w.sink.Set(status.Error(MsgFailed, backend.Detail(err)))
		observability.IncSubmission("failed")
		w.logger.WarnContext(ctx, "report generation failed", "err", err)
		return model.ReportResult{}, fmt.Errorf("generate report: %w", err)
	}

	res := Normalize(resp)
	w.board.Replace(id, res)
	w.sink.Set(status.Success(MsgReady))
	observability.IncSubmission("ok")
	w.logger.InfoContext(ctx, "report ready",
		"entities", res.EntitiesCount, "artifacts", len(res.Artifacts), "reports", len(res.Reports))
	return res, nil
}
