// Package stubbackend is an in-memory implementation of the report backend
// used for local demos and as the fake upstream in tests.
package stubbackend

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mohammed-shakir/layer-report-client/internal/core/middleware"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
)

// Fault makes a route answer with Status and Body instead of its normal
// response. Times < 0 means until cleared.
type Fault struct {
	Status int
	Body   string
	Times  int
}

type Server struct {
	mu      sync.Mutex
	layers  []string
	columns map[string][]string
	uploads map[string]int
	faults  map[string]*Fault
	calls   map[string]int
	lastReq map[string][]byte
	newID   func() string
}

type Option func(*Server)

// WithLayer adds a layer and its column names.
func WithLayer(name string, columns ...string) Option {
	return func(s *Server) {
		if _, ok := s.columns[name]; !ok {
			s.layers = append(s.layers, name)
		}
		s.columns[name] = columns
	}
}

func WithIDs(f func() string) Option {
	return func(s *Server) { s.newID = f }
}

func New(opts ...Option) *Server {
	s := &Server{
		columns: map[string][]string{},
		uploads: map[string]int{},
		faults:  map[string]*Fault{},
		calls:   map[string]int{},
		lastReq: map[string][]byte{},
		newID:   func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewDemo returns a server seeded with census-like layers.
func NewDemo() *Server {
	return New(
		WithLayer("Manzanas_CPV24",
			"ID_ENTIDAD", "n_per", "n_hombres", "n_mujeres",
			"n_edad_0_14", "n_edad_15_64", "n_edad_65_mas",
			"n_viv_part", "n_viv_col", "n_hog_total"),
		WithLayer("Entidades_CPV24",
			"ID_ENTIDAD", "n_per", "n_edad_0_14", "n_edad_15_64", "n_edad_65_mas",
			"n_viv_part", "n_viv_col"),
		WithLayer("Localidades_CPV24",
			"n_per", "n_edu_sup_tec", "n_edu_sup_univ", "n_edu_basica"),
	)
}

// Fail installs a fault on path.
func (s *Server) Fail(path string, status int, body string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = &Fault{Status: status, Body: body, Times: times}
}

func (s *Server) Clear(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, path)
}

// SetLayers replaces the layer names, keeping known columns.
func (s *Server) SetLayers(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append([]string(nil), names...)
}

func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastBody returns the last request body received on path.
func (s *Server) LastBody(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.lastReq[path]...)
}

func (s *Server) Handler(log *slog.Logger) http.Handler {
	if log == nil {
		log = logger.NopSlog()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recover(log))
	r.Use(middleware.Logging(log, "stub-backend"))
	r.Use(s.faultInjector)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Get("/layers", s.handleLayers)
	r.Get("/variables", s.handleVariables)
	r.Post("/upload-filter", s.handleUpload)
	r.Post("/upload-dictionary", s.handleUpload)
	r.Post("/report", s.handleReport)
	return r
}

func (s *Server) faultInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		f, ok := s.faults[r.URL.Path]
		var status int
		var body string
		if ok && f.Times != 0 {
			status, body = f.Status, f.Body
			if f.Times > 0 {
				f.Times--
			}
		}
		s.mu.Unlock()

		if status != 0 {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errors mirror the {"detail": "..."} shape of the real backend
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type layerInfo struct {
	Name string `json:"name"`
}

func (s *Server) handleLayers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]layerInfo, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, layerInfo{Name: l})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"layers": out})
}

type fieldInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DType       string `json:"dtype"`
}

type groupInfo struct {
	Group  string      `json:"group"`
	Fields []fieldInfo `json:"fields"`
}

func (s *Server) groupsFor(layer string) (map[string][]string, []string, bool) {
	s.mu.Lock()
	cols, ok := s.columns[layer]
	s.mu.Unlock()
	if !ok {
		return nil, nil, false
	}
	numeric := make([]string, 0, len(cols))
	for _, c := range cols {
		if strings.HasPrefix(c, "n_") {
			numeric = append(numeric, c)
		}
	}
	groups, order := GroupColumns(numeric)
	sort.Strings(order)
	return groups, order, true
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	layer := strings.TrimSpace(r.URL.Query().Get("layer"))
	if layer == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "missing query parameter: layer")
		return
	}
	groups, order, ok := s.groupsFor(layer)
	if !ok {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("no such table: %s", layer))
		return
	}
	out := make([]groupInfo, 0, len(order))
	for _, g := range order {
		fields := make([]fieldInfo, 0, len(groups[g]))
		for _, c := range groups[g] {
			fields = append(fields, fieldInfo{Name: c, DType: "INTEGER"})
		}
		out = append(out, groupInfo{Group: g, Fields: fields})
	}
	writeJSON(w, http.StatusOK, map[string]any{"layer": layer, "groups": out})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "missing form field: file")
		return
	}
	defer func() { _ = f.Close() }()

	header, rows, err := countRows(f)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", hdr.Filename, err))
		return
	}

	id := s.newID()
	s.mu.Lock()
	s.uploads[id] = rows
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"filter_id": id,
		"rows":      rows,
		"columns":   header,
	})
}

var errNoRows = errors.New("el archivo no contiene filas")

// the stub understands delimited text only
func countRows(r io.Reader) ([]string, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comma = ','
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, errNoRows
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row %d: %w", rows+1, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows++
	}
	if rows == 0 {
		return nil, 0, errNoRows
	}
	return header, rows, nil
}

type reportRequest struct {
	Layer        string   `json:"layer"`
	FilterID     string   `json:"filter_id"`
	Groups       []string `json:"groups"`
	Localidad    string   `json:"localidad"`
	DictionaryID string   `json:"dictionary_id,omitempty"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	s.mu.Lock()
	s.lastReq[r.URL.Path] = body
	s.mu.Unlock()

	var req reportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Localidad) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "field required: localidad")
		return
	}

	s.mu.Lock()
	entities, ok := s.uploads[req.FilterID]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("'%s'", req.FilterID))
		return
	}

	groups, _, ok := s.groupsFor(req.Layer)
	if !ok {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("no such table: %s", req.Layer))
		return
	}

	type reportOut struct {
		Group      string `json:"group"`
		GroupLabel string `json:"group_label"`
		RowsCount  int    `json:"rows_count"`
		CSVPath    string `json:"csv_path"`
	}
	var reports []reportOut
	for _, g := range req.Groups {
		cols, ok := groups[g]
		if !ok {
			continue
		}
		reports = append(reports, reportOut{
			Group:      g,
			GroupLabel: strings.TrimPrefix(g, "n_"),
			RowsCount:  len(cols),
			CSVPath:    "Resultados/reporte_" + g + ".csv",
		})
	}
	if len(reports) == 0 {
		writeDetail(w, http.StatusBadRequest, "No valid groups selected")
		return
	}

	prefix := "Resultados/reporte_" + slug(req.Localidad)
	writeJSON(w, http.StatusOK, map[string]any{
		"layer":          req.Layer,
		"entities_count": entities,
		"reports":        reports,
		"combined_csv":   prefix + ".csv",
		"combined_html":  prefix + ".html",
		"combined_xlsx":  prefix + ".xlsx",
		"combined_docx":  prefix + ".docx",
	})
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash && b.Len() > 0 {
			b.WriteByte('-')
			prevDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
