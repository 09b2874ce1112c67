package health

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

type fixedReporter struct {
	ready bool
	state string
}

func (f fixedReporter) Readiness() (bool, string) { return f.ready, f.state }

func TestReadiness_Handler(t *testing.T) {
	cases := []struct {
		rep      fixedReporter
		wantCode int
		wantBody string
	}{
		{fixedReporter{true, "ready"}, http.StatusOK, `"status":"ready"`},
		{fixedReporter{true, "degraded"}, http.StatusOK, `"resolver":"degraded"`},
		{fixedReporter{false, "waiting_retry"}, http.StatusServiceUnavailable, `"status":"not_ready"`},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		Readiness(tc.rep)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rr.Code != tc.wantCode {
			t.Fatalf("%+v: status=%d want %d", tc.rep, rr.Code, tc.wantCode)
		}
		if !strings.Contains(rr.Body.String(), tc.wantBody) {
			t.Fatalf("%+v: body=%s want %s", tc.rep, rr.Body.String(), tc.wantBody)
		}
	}
}
