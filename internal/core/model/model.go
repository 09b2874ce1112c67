// Package model defines core domain types shared across the client.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Layer struct {
	Name string `json:"name"`
}

// LayerNames returns the names in order.
func LayerNames(layers []Layer) []string {
	out := make([]string, 0, len(layers))
	for _, l := range layers {
		out = append(out, l.Name)
	}
	return out
}

// Field is one report column of a variable group.
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DType       string `json:"dtype,omitempty"`
}

// UnmarshalJSON accepts either a bare column name or a field object.
func (f *Field) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*f = Field{Name: name}
		return nil
	}
	type raw Field
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return fmt.Errorf("decode field: %w", err)
	}
	*f = Field(r)
	return nil
}

type VariableGroup struct {
	Group  string  `json:"group"`
	Fields []Field `json:"fields"`
}

func (g VariableGroup) FieldNames() []string {
	out := make([]string, 0, len(g.Fields))
	for _, f := range g.Fields {
		out = append(out, f.Name)
	}
	return out
}

type FilterSession struct {
	FilterID string   `json:"filter_id"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns,omitempty"`
}

type ReportRequest struct {
	Layer        string   `json:"layer"`
	FilterID     string   `json:"filter_id"`
	Groups       []string `json:"groups"`
	Locality     string   `json:"localidad"`
	DictionaryID string   `json:"dictionary_id,omitempty"`
}

type ArtifactKind string

const (
	ArtifactCSV  ArtifactKind = "csv"
	ArtifactHTML ArtifactKind = "html"
	ArtifactXLSX ArtifactKind = "xlsx"
	ArtifactDOCX ArtifactKind = "docx"
)

// ArtifactKinds is the display order of combined outputs.
var ArtifactKinds = []ArtifactKind{ArtifactCSV, ArtifactHTML, ArtifactXLSX, ArtifactDOCX}

type Artifact struct {
	Kind ArtifactKind `json:"kind" yaml:"kind"`
	Path string       `json:"path" yaml:"path"`
}

type GroupReport struct {
	Group     string `json:"group" yaml:"group"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	RowsCount int    `json:"rows_count" yaml:"rows_count"`
	CSVPath   string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
}

// Title is the label when the backend sent one, else the group key.
func (r GroupReport) Title() string {
	if strings.TrimSpace(r.Label) != "" {
		return r.Label
	}
	return r.Group
}

type ReportResult struct {
	Layer         string        `json:"layer,omitempty" yaml:"layer,omitempty"`
	EntitiesCount int           `json:"entities_count" yaml:"entities_count"`
	Artifacts     []Artifact    `json:"artifacts" yaml:"artifacts"`
	Reports       []GroupReport `json:"reports" yaml:"reports"`
}

// Artifact returns the path of a combined output if present.
func (r ReportResult) Artifact(kind ArtifactKind) (string, bool) {
	for _, a := range r.Artifacts {
		if a.Kind == kind {
			return a.Path, true
		}
	}
	return "", false
}
