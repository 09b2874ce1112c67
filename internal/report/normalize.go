package report

import (
	"github.com/mohammed-shakir/layer-report-client/internal/backend"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
)

// Normalize turns the backend payload into a renderable result. Combined
// artifacts follow model.ArtifactKinds order; absent or empty paths are
// skipped. Group reports keep the backend order.
func Normalize(resp backend.ReportResponse) model.ReportResult {
	out := model.ReportResult{
		Layer:         resp.Layer,
		EntitiesCount: resp.EntitiesCount,
		Artifacts:     []model.Artifact{},
		Reports:       make([]model.GroupReport, 0, len(resp.Reports)),
	}

	paths := map[model.ArtifactKind]*string{
		model.ArtifactCSV:  resp.CombinedCSV,
		model.ArtifactHTML: resp.CombinedHTML,
		model.ArtifactXLSX: resp.CombinedXLSX,
		model.ArtifactDOCX: resp.CombinedDOCX,
	}
	for _, k := range model.ArtifactKinds {
		if p := deref(paths[k]); p != "" {
			out.Artifacts = append(out.Artifacts, model.Artifact{Kind: k, Path: p})
		}
	}

	for _, r := range resp.Reports {
		out.Reports = append(out.Reports, model.GroupReport{
			Group:     r.Group,
			Label:     deref(r.GroupLabel),
			RowsCount: r.RowsCount,
			CSVPath:   deref(r.CSVPath),
		})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
