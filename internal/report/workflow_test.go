package report

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mohammed-shakir/layer-report-client/internal/backend"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

type fakeGenerator struct {
	resp  backend.ReportResponse
	err   error
	calls []model.ReportRequest
}

func (f *fakeGenerator) GenerateReport(_ context.Context, req model.ReportRequest) (backend.ReportResponse, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func ptr[T any](v T) *T { return &v }

func okResponse() backend.ReportResponse {
	return backend.ReportResponse{
		Layer:         "Manzanas_CPV24",
		EntitiesCount: 7,
		CombinedCSV:   ptr("Resultados/reporte_talca.csv"),
		CombinedXLSX:  ptr("Resultados/reporte_talca.xlsx"),
		CombinedDOCX:  ptr("Resultados/reporte_talca.docx"),
		Reports: []backend.ReportRecord{
			{Group: "A", GroupLabel: ptr("Grupo A"), RowsCount: 3, CSVPath: ptr("Resultados/reporte_A.csv")},
			{Group: "B", RowsCount: 1},
		},
	}
}

func validSelection() Selection {
	return Selection{Layer: "Manzanas_CPV24", FilterID: "f-1", Groups: []string{"A", "B"}, Locality: "  Talca "}
}

func TestValidate_OrderIsTotal(t *testing.T) {
	cases := []struct {
		name  string
		sel   Selection
		focus status.Focus
		msg   string
	}{
		{"everything missing", Selection{}, status.FocusFilter, MsgNeedFilter},
		{"filter missing only", Selection{Layer: "L", Groups: []string{"A"}, Locality: "x"}, status.FocusFilter, MsgNeedFilter},
		{"blank locality", Selection{FilterID: "f", Locality: "   "}, status.FocusLocality, MsgNeedLocality},
		{"no groups", Selection{FilterID: "f", Locality: "Talca"}, status.FocusGroups, MsgNeedGroups},
		{"no layer", Selection{FilterID: "f", Locality: "Talca", Groups: []string{"A"}}, status.FocusLayer, MsgNeedLayer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.sel)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err=%v want ValidationError", err)
			}
			if ve.Field != tc.focus || ve.Message != tc.msg {
				t.Fatalf("got=%+v want focus=%s msg=%q", ve, tc.focus, tc.msg)
			}
		})
	}
	if err := Validate(validSelection()); err != nil {
		t.Fatalf("valid selection rejected: %v", err)
	}
}

func TestSubmit_InvalidSendsNothing(t *testing.T) {
	gen := &fakeGenerator{resp: okResponse()}
	var rec status.Recorder
	w := New(gen, NewBoard(), &rec)

	sel := validSelection()
	sel.Locality = ""
	if _, err := w.Submit(context.Background(), sel); err == nil {
		t.Fatal("expected validation error")
	}
	if len(gen.calls) != 0 {
		t.Fatalf("request sent: %+v", gen.calls)
	}
	last := rec.Last()
	if last.Text != MsgNeedLocality || last.Focus != status.FocusLocality || last.Kind != status.KindError {
		t.Fatalf("last=%+v", last)
	}
}

func TestSubmit_SuccessReplacesBoard(t *testing.T) {
	gen := &fakeGenerator{resp: okResponse()}
	var rec status.Recorder
	board := NewBoard()
	w := New(gen, board, &rec, WithIDs(func() string { return "sub-1" }))

	res, err := w.Submit(context.Background(), validSelection())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := model.ReportRequest{Layer: "Manzanas_CPV24", FilterID: "f-1", Groups: []string{"A", "B"}, Locality: "Talca"}
	if diff := cmp.Diff([]model.ReportRequest{want}, gen.calls); diff != "" {
		t.Fatalf("request (-want +got):\n%s", diff)
	}
	if len(res.Reports) != 2 || res.Reports[0].Group != "A" || res.Reports[1].Group != "B" {
		t.Fatalf("reports=%+v", res.Reports)
	}
	shown, id, ok := board.Current()
	if !ok || id != "sub-1" {
		t.Fatalf("board id=%q ok=%v", id, ok)
	}
	if diff := cmp.Diff(res, shown); diff != "" {
		t.Fatalf("board (-returned +shown):\n%s", diff)
	}
	if diff := cmp.Diff([]string{MsgGenerating, MsgReady}, rec.Texts()); diff != "" {
		t.Fatalf("texts (-want +got):\n%s", diff)
	}
}

func TestSubmit_FailureKeepsBoardAndShowsBodyVerbatim(t *testing.T) {
	gen := &fakeGenerator{resp: okResponse()}
	var rec status.Recorder
	board := NewBoard()
	w := New(gen, board, &rec, WithIDs(func() string { return "first" }))
	if _, err := w.Submit(context.Background(), validSelection()); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	body := `{"detail":"No valid groups selected"}`
	gen.err = &backend.StatusError{Op: "report", Code: http.StatusBadRequest, Body: body}
	if _, err := w.Submit(context.Background(), validSelection()); err == nil {
		t.Fatal("expected error")
	}

	_, id, _ := board.Current()
	if id != "first" {
		t.Fatalf("board replaced by failed submission: id=%q", id)
	}
	last := rec.Last()
	if last.Text != MsgFailed || last.Detail != body {
		t.Fatalf("last=%+v", last)
	}
}

func TestSubmit_IdenticalSelectionsAreNotDeduplicated(t *testing.T) {
	gen := &fakeGenerator{resp: okResponse()}
	w := New(gen, NewBoard(), &status.Recorder{})
	for range 2 {
		if _, err := w.Submit(context.Background(), validSelection()); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if len(gen.calls) != 2 {
		t.Fatalf("calls=%d want 2", len(gen.calls))
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(okResponse())
	want := model.ReportResult{
		Layer:         "Manzanas_CPV24",
		EntitiesCount: 7,
		Artifacts: []model.Artifact{
			{Kind: model.ArtifactCSV, Path: "Resultados/reporte_talca.csv"},
			{Kind: model.ArtifactXLSX, Path: "Resultados/reporte_talca.xlsx"},
			{Kind: model.ArtifactDOCX, Path: "Resultados/reporte_talca.docx"},
		},
		Reports: []model.GroupReport{
			{Group: "A", Label: "Grupo A", RowsCount: 3, CSVPath: "Resultados/reporte_A.csv"},
			{Group: "B", RowsCount: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if got.Reports[1].Title() != "B" {
		t.Fatalf("title fallback=%q", got.Reports[1].Title())
	}
}
