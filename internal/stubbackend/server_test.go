package stubbackend

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func multipartBody(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "filtro.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write([]byte(content))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestStub_UploadThenReport(t *testing.T) {
	s := NewDemo()
	h := s.Handler(nil)

	body, ct := multipartBody(t, "ID_ENTIDAD,ENTIDAD\n1,A\n2,B\n\n")
	req := httptest.NewRequest(http.MethodPost, "/upload-filter", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	var up struct {
		FilterID string `json:"filter_id"`
		Rows     int    `json:"rows"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if up.Rows != 2 || up.FilterID == "" {
		t.Fatalf("upload=%+v want 2 rows", up)
	}

	payload := `{"layer":"Manzanas_CPV24","filter_id":"` + up.FilterID + `","groups":["n_edad","n_viv"],"localidad":"Puerto Montt"}`
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(payload)))
	if rr.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", rr.Code, rr.Body.String())
	}
	var rep struct {
		CombinedDOCX string `json:"combined_docx"`
		Reports      []struct {
			Group string `json:"group"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rep.Reports) != 2 || rep.Reports[0].Group != "n_edad" || rep.Reports[1].Group != "n_viv" {
		t.Fatalf("reports=%+v", rep.Reports)
	}
	if rep.CombinedDOCX != "Resultados/reporte_puerto-montt.docx" {
		t.Fatalf("combined_docx=%q", rep.CombinedDOCX)
	}
}

func TestStub_FaultInjectionCountsDown(t *testing.T) {
	s := NewDemo()
	h := s.Handler(nil)
	s.Fail("/layers", http.StatusServiceUnavailable, "down", 1)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/layers", nil))
	if rr.Code != http.StatusServiceUnavailable || rr.Body.String() != "down" {
		t.Fatalf("first call status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/layers", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("second call status=%d", rr.Code)
	}
	if got := s.Calls("/layers"); got != 2 {
		t.Fatalf("calls=%d want 2", got)
	}
}

func TestStub_ReportUnknownFilter(t *testing.T) {
	h := NewDemo().Handler(nil)
	payload := `{"layer":"Manzanas_CPV24","filter_id":"nope","groups":["n_per"],"localidad":"X"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(payload)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}

func TestStub_EmptyUploadRejected(t *testing.T) {
	h := NewDemo().Handler(nil)
	body, ct := multipartBody(t, "ID_ENTIDAD\n")
	req := httptest.NewRequest(http.MethodPost, "/upload-filter", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
}
