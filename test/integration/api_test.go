package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/cutlist-optimizer/internal/application"
	"github.com/eugenenazirov/cutlist-optimizer/internal/config"
	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
)

func newApp(t *testing.T, dbPath string) *application.App {
	t.Helper()

	cfg := config.Config{
		Port:                "0",
		DatabasePath:        dbPath,
		LogLevel:            "info",
		CORSAllowedOrigins:  []string{"*"},
		EnableMetrics:       true,
		MaxBodyBytes:        1 << 20,
		ShutdownGracePeriod: time.Second,
	}
	app, err := application.New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("application.New returned error: %v", err)
	}
	return app
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type project struct {
	ID       string                  `json:"id"`
	Title    string                  `json:"title"`
	CutList  []optimizer.CutListItem `json:"cutList"`
	Hardware []struct {
		Name string `json:"name"`
	} `json:"hardware"`
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func TestIntegrationFlow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "projects.db")
	app := newApp(t, dbPath)
	handler := app.Handler()

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	csv := []byte("Part,Qty,Length,Width,Thickness,Material,Unit Price\nLeg,2,50,5.5,1.5,Pine,6.97\n")
	rec = performRequest(t, handler, http.MethodPost, "/api/cut-list/import", csv, map[string]string{"Content-Type": "text/csv"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from import, got %d: %s", rec.Code, rec.Body.String())
	}
	var imported struct {
		Items  []optimizer.CutListItem `json:"items"`
		Errors []string                `json:"errors"`
	}
	decode(t, rec, &imported)
	if len(imported.Items) != 1 || len(imported.Errors) != 0 {
		t.Fatalf("unexpected import result %+v", imported)
	}

	payload, _ := json.Marshal(map[string]any{
		"title":    "Saw bench",
		"cutList":  imported.Items,
		"hardware": []any{map[string]any{"name": "Lag bolts", "type": "Bolt", "quantity": 8, "unitPrice": "0.62"}},
	})
	rec = performRequest(t, handler, http.MethodPost, "/api/projects", payload, jsonHeaders)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create, got %d: %s", rec.Code, rec.Body.String())
	}
	var created project
	decode(t, rec, &created)

	rec = performRequest(t, handler, http.MethodGet, "/api/projects/"+created.ID+"/optimization", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from optimization, got %d", rec.Code)
	}
	var optimized struct {
		TotalBoards     int             `json:"totalBoards"`
		EstimatedCost   decimal.Decimal `json:"estimatedCost"`
		WastePercentage float64         `json:"wastePercentage"`
		Suggestions     []string        `json:"suggestions"`
	}
	decode(t, rec, &optimized)
	if optimized.TotalBoards != 2 || !optimized.EstimatedCost.Equal(decimal.RequireFromString("13.94")) {
		t.Fatalf("expected 2 boards for $13.94, got %d for %s", optimized.TotalBoards, optimized.EstimatedCost)
	}
	if optimized.WastePercentage < 0 || optimized.WastePercentage > 100 {
		t.Fatalf("waste out of range: %v", optimized.WastePercentage)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/projects/"+created.ID+"/shopping-list?format=pdf", nil, nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF shopping list, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodPost, "/api/projects/"+created.ID+"/clone", nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from clone, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, handler, http.MethodPost, "/api/templates/simple-bookshelf/projects", nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from template project, got %d: %s", rec.Code, rec.Body.String())
	}

	note, _ := json.Marshal(map[string]any{"content": "Legs splayed at 15 degrees"})
	rec = performRequest(t, handler, http.MethodPost, "/api/projects/"+created.ID+"/notes", note, jsonHeaders)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from note, got %d: %s", rec.Code, rec.Body.String())
	}

	stock, _ := json.Marshal(map[string]any{"name": "Pine 2x6 offcut", "material": "Pine", "length": 30, "width": 5.5, "thickness": 1.5})
	rec = performRequest(t, handler, http.MethodPost, "/api/inventory", stock, jsonHeaders)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from inventory, got %d: %s", rec.Code, rec.Body.String())
	}

	if err := app.Close(); err != nil {
		t.Fatalf("close app: %v", err)
	}

	// Projects survive a restart on the same database.
	reopened := newApp(t, dbPath)
	t.Cleanup(func() { _ = reopened.Close() })

	rec = performRequest(t, reopened.Handler(), http.MethodGet, "/api/projects", nil, nil)
	var listed struct {
		Projects []project `json:"projects"`
	}
	decode(t, rec, &listed)
	if len(listed.Projects) != 3 {
		t.Fatalf("expected 3 persisted projects, got %d", len(listed.Projects))
	}
	titles := map[string]bool{}
	for _, p := range listed.Projects {
		titles[p.Title] = true
	}
	if !titles["Saw bench"] || !titles["Saw bench (Copy)"] {
		t.Fatalf("unexpected persisted titles %v", titles)
	}
	for _, p := range listed.Projects {
		if p.Title == "Saw bench (Copy)" && (len(p.Hardware) != 1 || p.Hardware[0].Name != "Lag bolts") {
			t.Fatalf("expected hardware copied and persisted, got %+v", p.Hardware)
		}
	}

	rec = performRequest(t, reopened.Handler(), http.MethodGet, "/api/projects/"+created.ID+"/notes", nil, nil)
	var notes struct {
		Notes []struct {
			Content string `json:"content"`
		} `json:"notes"`
	}
	decode(t, rec, &notes)
	if len(notes.Notes) != 1 || notes.Notes[0].Content != "Legs splayed at 15 degrees" {
		t.Fatalf("expected persisted note, got %+v", notes.Notes)
	}

	rec = performRequest(t, reopened.Handler(), http.MethodGet, "/api/inventory", nil, nil)
	var inventory struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	decode(t, rec, &inventory)
	if len(inventory.Items) != 1 || inventory.Items[0].Name != "Pine 2x6 offcut" {
		t.Fatalf("expected persisted inventory, got %+v", inventory.Items)
	}

	rec = performRequest(t, reopened.Handler(), http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", rec.Code)
	}
}

func TestIntegrationUnknownMaterialSuggestion(t *testing.T) {
	app := newApp(t, "")
	t.Cleanup(func() { _ = app.Close() })

	payload, _ := json.Marshal(map[string]any{"cutList": []map[string]any{
		{"partName": "Panel", "quantity": 1, "length": 30, "width": 10, "thickness": 0.75, "material": "Teak", "unitPrice": "0"},
	}})
	rec := performRequest(t, app.Handler(), http.MethodPost, "/api/optimize", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result struct {
		TotalBoards int      `json:"totalBoards"`
		Suggestions []string `json:"suggestions"`
	}
	decode(t, rec, &result)
	want := `No standard Teak boards found for 0.75" thickness. Consider custom lumber.`
	if result.TotalBoards != 0 || len(result.Suggestions) == 0 || result.Suggestions[0] != want {
		t.Fatalf("expected Teak suggestion, got %+v", result)
	}
}
