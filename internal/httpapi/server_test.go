package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/envelope"
	"cortez.fish/bite-pipeline/internal/globaltime"
	"cortez.fish/bite-pipeline/internal/metrics"
)

func serveRequest(t *testing.T, dataDir, path string) *httptest.ResponseRecorder {
	t.Helper()

	server := NewServer(dataDir, zerolog.Nop(), Options{})
	e := server.buildEcho()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	rec := serveRequest(t, t.TempDir(), "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Service string `json:"service"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "success" || body.Data.Service != "bite-pipeline" {
		t.Fatalf("unexpected health payload %s", rec.Body.String())
	}
}

func TestBiteReportsNotPublished(t *testing.T) {
	t.Parallel()

	rec := serveRequest(t, t.TempDir(), "/api/v1/bite-reports")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first publish, got %d", rec.Code)
	}
}

func TestBiteReportsServesSnapshot(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 6, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	dataDir := t.TempDir()
	reports := []bite.Report{{
		Source:  "El Budster",
		Date:    "2026-02-21",
		Species: []string{"striped marlin"},
		Notes:   "Two striped marlin released at the 95 spot",
		Link:    "https://www.elbudster.com/report",
	}}
	env := &envelope.Bite{
		GeneratedAt: globaltime.UTC(),
		Data: envelope.BiteData{
			Reports: reports,
			Metrics: metrics.Build(reports),
		},
	}
	if err := envelope.WriteBite(filepath.Join(dataDir, envelope.BiteFile), env); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	rec := serveRequest(t, dataDir, "/api/v1/bite-reports")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Status string        `json:"status"`
		Data   envelope.Bite `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data.Data.Reports) != 1 || body.Data.Data.Reports[0].Source != "El Budster" {
		t.Fatalf("unexpected snapshot payload %s", rec.Body.String())
	}
}

func TestConditionsNotPublished(t *testing.T) {
	t.Parallel()

	rec := serveRequest(t, t.TempDir(), "/api/v1/conditions")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first publish, got %d", rec.Code)
	}
}
