// Package backend is the typed client for the report backend HTTP surface.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/core/observability"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
)

const (
	PathLayers           = "/layers"
	PathVariables        = "/variables"
	PathUploadFilter     = "/upload-filter"
	PathUploadDictionary = "/upload-dictionary"
	PathReport           = "/report"
)

// ErrEmptyLayers is returned when /layers answers OK with no layers.
var ErrEmptyLayers = errors.New("backend returned no layers")

// StatusError is a non-OK answer. Body holds the response text as sent.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("backend %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.Code, body)
}

// Detail returns the response body verbatim.
func Detail(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Body
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// API is what the workflow components need from the backend.
type API interface {
	ListLayers(ctx context.Context) ([]model.Layer, error)
	ListGroups(ctx context.Context, layer string) ([]model.VariableGroup, error)
	Upload(ctx context.Context, path, filename string, body io.Reader) (model.FilterSession, error)
	GenerateReport(ctx context.Context, req model.ReportRequest) (ReportResponse, error)
}

type Client struct {
	logger   *slog.Logger
	http     *http.Client
	base     *url.URL
	startNow func() time.Time // for tests
}

var _ API = (*Client)(nil)

func New(log *slog.Logger, client *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NopSlog()
	}
	return &Client{logger: log, http: client, base: u, startNow: time.Now}, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type layersResponse struct {
	Layers []model.Layer `json:"layers"`
}

func (c *Client) ListLayers(ctx context.Context) ([]model.Layer, error) {
	var out layersResponse
	if err := c.doJSON(ctx, "layers", http.MethodGet, c.endpoint(PathLayers, nil), "", nil, &out); err != nil {
		return nil, err
	}
	layers := make([]model.Layer, 0, len(out.Layers))
	for _, l := range out.Layers {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		layers = append(layers, l)
	}
	if len(layers) == 0 {
		return nil, ErrEmptyLayers
	}
	return layers, nil
}

type variablesResponse struct {
	Layer  string                `json:"layer"`
	Groups []model.VariableGroup `json:"groups"`
}

func (c *Client) ListGroups(ctx context.Context, layer string) ([]model.VariableGroup, error) {
	q := url.Values{}
	q.Set("layer", layer)
	var out variablesResponse
	if err := c.doJSON(ctx, "variables", http.MethodGet, c.endpoint(PathVariables, q), "", nil, &out); err != nil {
		return nil, err
	}
	if out.Groups == nil {
		out.Groups = []model.VariableGroup{}
	}
	return out.Groups, nil
}

// Upload posts body as the multipart field "file" to path.
func (c *Client) Upload(ctx context.Context, path, filename string, body io.Reader) (model.FilterSession, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return model.FilterSession{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return model.FilterSession{}, fmt.Errorf("copy upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.FilterSession{}, fmt.Errorf("close multipart: %w", err)
	}

	op := strings.TrimPrefix(path, "/")
	var out model.FilterSession
	if err := c.doJSON(ctx, op, http.MethodPost, c.endpoint(path, nil), mw.FormDataContentType(), &buf, &out); err != nil {
		return model.FilterSession{}, err
	}
	if out.FilterID == "" {
		return model.FilterSession{}, fmt.Errorf("backend %s: response without filter_id", op)
	}
	return out, nil
}

func (c *Client) GenerateReport(ctx context.Context, req model.ReportRequest) (ReportResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("encode report request: %w", err)
	}
	var out ReportResponse
	if err := c.doJSON(ctx, "report", http.MethodPost, c.endpoint(PathReport, nil), "application/json", bytes.NewReader(b), &out); err != nil {
		return ReportResponse{}, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, target, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	reqID := logger.RequestID(ctx)
	if reqID == "" {
		reqID = logger.NewID()
	}
	req.Header.Set("X-Request-ID", reqID)

	start := c.startNow()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveBackend(op, 0, time.Since(start).Seconds())
		c.logger.WarnContext(ctx, "backend call failed", "op", op, "err", err)
		return fmt.Errorf("backend %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveBackend(op, resp.StatusCode, dur.Seconds())
	c.logger.DebugContext(ctx, "backend call done",
		"op", op,
		"status", resp.StatusCode,
		"duration", dur.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend %s: decode response: %w", op, err)
	}
	return nil
}
