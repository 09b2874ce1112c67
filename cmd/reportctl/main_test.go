package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/stubbackend"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("STATUS_EVENTS_ENABLED", "false")

	var stdout, stderr bytes.Buffer
	root, closeApp := newRootCmd()
	t.Cleanup(func() { _ = closeApp() })
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func stubURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(stubbackend.NewDemo().Handler(logger.NopSlog()))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestLayersCmd_YAML(t *testing.T) {
	out, _, err := execute(t, "--backend", stubURL(t), "layers", "-o", "yaml")
	if err != nil {
		t.Fatalf("layers: %v", err)
	}
	var got layersOut
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode yaml: %v\n%s", err, out)
	}
	if got.State != "ready" || got.Source != "live" || len(got.Layers) != 3 {
		t.Fatalf("out=%+v", got)
	}
}

func TestGroupsCmd_Text(t *testing.T) {
	out, stderr, err := execute(t, "--backend", stubURL(t), "groups", "--layer", "Localidades_CPV24")
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if !strings.Contains(out, "columnas") && !strings.Contains(out, "columna") {
		t.Fatalf("stdout=%q", out)
	}
	if !strings.Contains(stderr, "Variables listas") {
		t.Fatalf("stderr=%q", stderr)
	}
}

func TestReportCmd_JSON(t *testing.T) {
	filter := filepath.Join(t.TempDir(), "filtro.csv")
	if err := os.WriteFile(filter, []byte("ID_ENTIDAD\n10\n11\n12\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, _, err := execute(t, "--backend", stubURL(t), "-o", "json",
		"report", "--filter", filter, "--all-groups", "--locality", "Talca")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var res model.ReportResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.EntitiesCount != 3 || len(res.Reports) == 0 || len(res.Artifacts) != 4 {
		t.Fatalf("result=%+v", res)
	}
}

func TestReportCmd_MissingLocality(t *testing.T) {
	filter := filepath.Join(t.TempDir(), "filtro.csv")
	if err := os.WriteFile(filter, []byte("ID_ENTIDAD\n10\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, stderr, err := execute(t, "--backend", stubURL(t), "report", "--filter", filter, "--all-groups")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(stderr, "Ingresa la localidad") {
		t.Fatalf("stderr=%q", stderr)
	}
}

func TestRootCmd_RejectsUnknownOutput(t *testing.T) {
	if _, _, err := execute(t, "-o", "xml", "layers"); err == nil {
		t.Fatal("expected error for -o xml")
	}
}
