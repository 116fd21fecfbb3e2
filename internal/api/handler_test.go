package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/cutlist-optimizer/internal/catalog"
	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
	"github.com/eugenenazirov/cutlist-optimizer/internal/templates"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func newTestHandler(t *testing.T, store storage.Storage, opts ...HandlerOption) *Handler {
	t.Helper()

	cat := catalog.Default()
	opts = append([]HandlerOption{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewHandler(optimizer.New(cat), cat, store, templates.Default(), opts...)
}

func setupTestRouter(t *testing.T) (http.Handler, *controllableClock) {
	t.Helper()

	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	handler := newTestHandler(t, storage.NewMemoryStorage(), WithClock(clock.Now))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false), WithRateLimit(0, 0))

	return router, clock
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func pineRail() map[string]any {
	return map[string]any{
		"partName":  "Top rail",
		"quantity":  1,
		"length":    96,
		"width":     5.5,
		"thickness": 1.5,
		"material":  "Pine",
		"unitPrice": "0",
	}
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	if got := requestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %s", got)
	}
}

func TestWriteInternalErrorHidesDetails(t *testing.T) {
	h := newTestHandler(t, storage.NewMemoryStorage())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.writeInternalError(rec, req, errors.New("disk on fire"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Fatalf("internal error leaked to client: %s", rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, clock := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeBody[healthResponse](t, rec)
	if body.Status != "ok" || body.Storage != "ok" {
		t.Fatalf("expected healthy response, got %+v", body)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

type unhealthyStorage struct {
	storage.Storage
}

func (unhealthyStorage) Ping(context.Context) error {
	return errors.New("database is locked")
}

func TestHealthEndpointReportsDegradedStorage(t *testing.T) {
	handler := newTestHandler(t, unhealthyStorage{Storage: storage.NewMemoryStorage()})
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := decodeBody[healthResponse](t, rec)
	if body.Status != "degraded" || body.Storage != "database is locked" {
		t.Fatalf("unexpected health body %+v", body)
	}
}

func TestOptimizeEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/optimize", map[string]any{
		"cutList": []any{pineRail()},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[optimizeResponse](t, rec)
	if body.TotalBoards != 1 || len(body.BoardUsage) != 1 {
		t.Fatalf("expected one board, got %+v", body.Result)
	}
	if body.BoardUsage[0].Product.ID != "pine-2x6-8" {
		t.Fatalf("expected pine-2x6-8, got %s", body.BoardUsage[0].Product.ID)
	}
	if !body.EstimatedCost.Equal(decimal.RequireFromString("6.97")) {
		t.Fatalf("expected cost 6.97, got %s", body.EstimatedCost)
	}
	if body.WastePercentage != 0 {
		t.Fatalf("expected no waste, got %v", body.WastePercentage)
	}
	if body.Summary.TotalPieces != 1 {
		t.Fatalf("expected summary of 1 piece, got %+v", body.Summary)
	}
}

func TestOptimizeEndpointEmptyCutList(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/optimize", map[string]any{"cutList": []any{}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody[optimizeResponse](t, rec)
	if body.TotalBoards != 0 || len(body.BoardUsage) != 0 || len(body.Suggestions) != 1 {
		t.Fatalf("expected empty result with one suggestion, got %+v", body.Result)
	}
}

func TestOptimizeEndpointRejectsBadInput(t *testing.T) {
	router, _ := setupTestRouter(t)

	t.Run("MalformedJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/optimize", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("InvalidItem", func(t *testing.T) {
		item := pineRail()
		item["quantity"] = 0
		item["material"] = ""
		rec := doJSON(t, router, http.MethodPost, "/api/optimize", map[string]any{"cutList": []any{item}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if body.Error != "Validation failed" {
			t.Fatalf("unexpected error %q", body.Error)
		}
		for _, field := range []string{"cutList[0].quantity", "cutList[0].material"} {
			if _, ok := body.Fields[field]; !ok {
				t.Fatalf("expected field error for %s, got %v", field, body.Fields)
			}
		}
	})

	t.Run("QuantityOverLimit", func(t *testing.T) {
		item := pineRail()
		item["quantity"] = optimizer.MaxQuantity + 1
		rec := doJSON(t, router, http.MethodPost, "/api/optimize", map[string]any{"cutList": []any{item}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if got := body.Fields["cutList[0].quantity"]; got != "Must be less than or equal to 10000" {
			t.Fatalf("unexpected quantity error %q", got)
		}
	})

	t.Run("QuantitiesOverflowInt", func(t *testing.T) {
		huge, small := pineRail(), pineRail()
		huge["quantity"] = int64(math.MaxInt64)
		huge["length"] = 10
		small["quantity"] = 2
		small["length"] = 10
		rec := doJSON(t, router, http.MethodPost, "/api/optimize", map[string]any{"cutList": []any{huge, small}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody[errorResponse](t, rec)
		if _, ok := body.Fields["cutList[0].quantity"]; !ok {
			t.Fatalf("expected quantity field error, got %v", body.Fields)
		}
	})

	t.Run("NegativePrice", func(t *testing.T) {
		item := pineRail()
		item["unitPrice"] = "-1.50"
		rec := doJSON(t, router, http.MethodPost, "/api/optimize", map[string]any{"cutList": []any{item}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if _, ok := body.Fields["cutList[0].unitPrice"]; !ok {
			t.Fatalf("expected unitPrice field error, got %v", body.Fields)
		}
	})
}

func TestRequestBodyLimit(t *testing.T) {
	handler := newTestHandler(t, storage.NewMemoryStorage())
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false), WithMaxBodyBytes(16))

	rec := doJSON(t, router, http.MethodPost, "/api/optimize", map[string]any{
		"cutList": []any{pineRail(), pineRail()},
	})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestMaterialsEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)

	t.Run("All", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/materials", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody[materialsResponse](t, rec)
		if len(body.Products) != catalog.Default().Len() {
			t.Fatalf("expected every product, got %d", len(body.Products))
		}
		if len(body.Materials) == 0 || body.Materials[0] != "Pine" {
			t.Fatalf("unexpected materials %v", body.Materials)
		}
	})

	t.Run("FilteredCaseInsensitive", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/materials?material=pine", nil)
		body := decodeBody[materialsResponse](t, rec)
		if len(body.Products) == 0 {
			t.Fatalf("expected pine products")
		}
		for _, p := range body.Products {
			if p.Material != "Pine" {
				t.Fatalf("unexpected product %s of %s", p.ID, p.Material)
			}
		}
	})

	t.Run("BestMatch", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/materials/best-match?material=Pine&length=90&width=3&thickness=1.5", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody[bestMatchResponse](t, rec)
		if body.ID != "pine-2x4-8" {
			t.Fatalf("expected pine-2x4-8, got %s", body.ID)
		}
		if !body.EstimatedPiecePrice.Equal(body.Price) || body.EstimatedPiecePrice.String() != "3.98" {
			t.Fatalf("expected estimated piece price 3.98, got %s", body.EstimatedPiecePrice)
		}
	})

	t.Run("BestMatchNonFiniteSize", func(t *testing.T) {
		for _, length := range []string{"NaN", "Inf", "-Inf"} {
			rec := doJSON(t, router, http.MethodGet, "/api/materials/best-match?material=Pine&length="+length+"&width=3&thickness=1.5", nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("length %s: expected 400, got %d", length, rec.Code)
			}
		}
	})

	t.Run("BestMatchNotFound", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/materials/best-match?material=Pine&length=200&width=3&thickness=1.5", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("BestMatchBadNumber", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/materials/best-match?material=Pine&length=abc&width=3&thickness=1.5", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func createProject(t *testing.T, router http.Handler, title string) storage.Project {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/projects", map[string]any{
		"title":       title,
		"description": "Garage workbench",
		"cutList":     []any{pineRail()},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[storage.Project](t, rec)
}

func TestProjectLifecycle(t *testing.T) {
	router, _ := setupTestRouter(t)

	created := createProject(t, router, "Workbench")
	if created.ID == "" || len(created.CutList) != 1 || created.CutList[0].ID == "" {
		t.Fatalf("expected ids on project and items, got %+v", created)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/projects/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/projects/"+created.ID, map[string]any{"title": "Big workbench"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on patch, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[storage.Project](t, rec)
	if updated.Title != "Big workbench" || updated.Description != "Garage workbench" || len(updated.CutList) != 1 {
		t.Fatalf("patch changed more than the title: %+v", updated)
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/projects/"+created.ID, map[string]any{"cutList": []any{}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on cut list patch, got %d", rec.Code)
	}
	if got := decodeBody[storage.Project](t, rec); len(got.CutList) != 0 {
		t.Fatalf("expected cut list to be replaced, got %+v", got.CutList)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/projects", nil)
	list := decodeBody[projectsResponse](t, rec)
	if len(list.Projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list.Projects))
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/projects/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/projects/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestProjectValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "MissingTitle", method: http.MethodPost, path: "/api/projects", body: map[string]any{"title": ""}, status: http.StatusBadRequest},
		{name: "BadImageURL", method: http.MethodPost, path: "/api/projects", body: map[string]any{"title": "x", "imageUrl": "not a url"}, status: http.StatusBadRequest},
		{name: "UnknownGet", method: http.MethodGet, path: "/api/projects/missing", status: http.StatusNotFound},
		{name: "UnknownPatch", method: http.MethodPatch, path: "/api/projects/missing", body: map[string]any{"title": "x"}, status: http.StatusNotFound},
		{name: "UnknownDelete", method: http.MethodDelete, path: "/api/projects/missing", status: http.StatusNotFound},
		{name: "UnknownClone", method: http.MethodPost, path: "/api/projects/missing/clone", status: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPatchRejectsInvalidCutList(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createProject(t, router, "Shelf")

	item := pineRail()
	item["length"] = -4
	rec := doJSON(t, router, http.MethodPatch, "/api/projects/"+created.ID, map[string]any{"cutList": []any{item}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody[errorResponse](t, rec)
	if _, ok := body.Fields["cutList[0].length"]; !ok {
		t.Fatalf("expected length field error, got %v", body.Fields)
	}
}

func TestCloneProject(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createProject(t, router, "Bookshelf")

	t.Run("DefaultTitle", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/projects/"+created.ID+"/clone", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		clone := decodeBody[storage.Project](t, rec)
		if clone.Title != "Bookshelf (Copy)" || clone.ID == created.ID {
			t.Fatalf("unexpected clone %+v", clone)
		}
		if clone.CutList[0].ID == created.CutList[0].ID {
			t.Fatalf("expected cloned items to get new ids")
		}
	})

	t.Run("GivenTitle", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/projects/"+created.ID+"/clone", map[string]any{"title": "Tall bookshelf"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if clone := decodeBody[storage.Project](t, rec); clone.Title != "Tall bookshelf" {
			t.Fatalf("unexpected title %q", clone.Title)
		}
	})
}

func TestProjectOptimization(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createProject(t, router, "Bench")

	rec := doJSON(t, router, http.MethodGet, "/api/projects/"+created.ID+"/optimization", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[projectOptimizationResponse](t, rec)
	if body.ProjectID != created.ID || body.TotalBoards != 1 {
		t.Fatalf("unexpected optimization %+v", body)
	}
}

func TestProjectShoppingList(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createProject(t, router, "Side Table")
	base := "/api/projects/" + created.ID + "/shopping-list"

	t.Run("JSON", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, base, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Title string          `json:"title"`
			Total decimal.Decimal `json:"total"`
			Lines []struct {
				SKU      string `json:"sku"`
				Quantity int    `json:"quantity"`
			} `json:"lines"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Title != "Side Table" || len(body.Lines) != 1 || body.Lines[0].SKU != "161648" {
			t.Fatalf("unexpected shopping list %+v", body)
		}
		if !body.Total.Equal(decimal.RequireFromString("6.97")) {
			t.Fatalf("expected total 6.97, got %s", body.Total)
		}
	})

	downloads := []struct {
		format      string
		contentType string
		prefix      []byte
	}{
		{format: "csv", contentType: "text/csv; charset=utf-8", prefix: []byte("Item,Material")},
		{format: "xlsx", contentType: xlsxContentType, prefix: []byte("PK")},
		{format: "pdf", contentType: "application/pdf", prefix: []byte("%PDF-")},
	}
	for _, tc := range downloads {
		t.Run(tc.format, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodGet, base+"?format="+tc.format, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tc.contentType {
				t.Fatalf("expected content type %s, got %s", tc.contentType, got)
			}
			want := `attachment; filename=Side_Table_shopping_list.` + tc.format
			if got := rec.Header().Get("Content-Disposition"); got != want {
				t.Fatalf("expected disposition %q, got %q", want, got)
			}
			if !bytes.HasPrefix(rec.Body.Bytes(), tc.prefix) {
				t.Fatalf("unexpected body prefix %q", rec.Body.Bytes()[:min(8, rec.Body.Len())])
			}
		})
	}

	t.Run("UnknownFormat", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, base+"?format=docx", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestShoppingListEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/shopping-list?format=csv", map[string]any{
		"title":   "Quick build",
		"cutList": []any{pineRail()},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "161648") {
		t.Fatalf("expected SKU in csv, got %s", rec.Body.String())
	}

	t.Run("NothingToBuy", func(t *testing.T) {
		item := pineRail()
		item["material"] = "Teak"
		rec := doJSON(t, router, http.MethodPost, "/api/shopping-list", map[string]any{
			"title":   "Exotic",
			"cutList": []any{item},
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func woodScrews() map[string]any {
	return map[string]any{
		"name":      "Wood screws",
		"size":      `#8 x 1-1/4"`,
		"quantity":  2,
		"unitPrice": "7.48",
		"url":       "https://example.com/screws",
	}
}

func TestProjectHardware(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/projects", map[string]any{
		"title":    "Bookcase",
		"cutList":  []any{pineRail()},
		"hardware": []any{woodScrews()},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[storage.Project](t, rec)
	if len(created.Hardware) != 1 || created.Hardware[0].ID == "" || created.Hardware[0].Type != storage.DefaultHardwareType {
		t.Fatalf("expected hardware with id and default type, got %+v", created.Hardware)
	}

	t.Run("ShoppingListIncludesHardware", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/projects/"+created.ID+"/shopping-list", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			LumberTotal   decimal.Decimal `json:"lumberTotal"`
			HardwareTotal decimal.Decimal `json:"hardwareTotal"`
			Total         decimal.Decimal `json:"total"`
			Lines         []struct {
				Kind string `json:"kind"`
				Name string `json:"name"`
			} `json:"lines"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Lines) != 2 || body.Lines[1].Kind != "hardware" || body.Lines[1].Name != "Wood screws" {
			t.Fatalf("expected lumber then hardware line, got %+v", body.Lines)
		}
		if !body.LumberTotal.Equal(decimal.RequireFromString("6.97")) || !body.HardwareTotal.Equal(decimal.RequireFromString("14.96")) {
			t.Fatalf("unexpected subtotals lumber %s hardware %s", body.LumberTotal, body.HardwareTotal)
		}
		if !body.Total.Equal(decimal.RequireFromString("21.93")) {
			t.Fatalf("expected total 21.93, got %s", body.Total)
		}
	})

	t.Run("PatchReplacesHardware", func(t *testing.T) {
		hinge := map[string]any{"name": "Euro hinge", "type": "Hinge", "quantity": 4, "unitPrice": "3.10"}
		rec := doJSON(t, router, http.MethodPatch, "/api/projects/"+created.ID, map[string]any{"hardware": []any{hinge}})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		updated := decodeBody[storage.Project](t, rec)
		if len(updated.Hardware) != 1 || updated.Hardware[0].Type != "Hinge" || len(updated.CutList) != 1 {
			t.Fatalf("expected hardware replaced, got %+v", updated)
		}
	})

	t.Run("HardwareOnlyShoppingList", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/shopping-list?format=csv", map[string]any{
			"title":    "Hinge swap",
			"hardware": []any{woodScrews()},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Wood screws") {
			t.Fatalf("expected hardware in csv, got %s", rec.Body.String())
		}
	})

	invalid := []struct {
		name  string
		edit  func(map[string]any)
		field string
	}{
		{name: "UnknownType", edit: func(m map[string]any) { m["type"] = "Gizmo" }, field: "hardware[0].type"},
		{name: "MissingName", edit: func(m map[string]any) { m["name"] = "" }, field: "hardware[0].name"},
		{name: "ZeroQuantity", edit: func(m map[string]any) { m["quantity"] = 0 }, field: "hardware[0].quantity"},
		{name: "QuantityOverLimit", edit: func(m map[string]any) { m["quantity"] = 10001 }, field: "hardware[0].quantity"},
		{name: "NegativePrice", edit: func(m map[string]any) { m["unitPrice"] = "-1" }, field: "hardware[0].unitPrice"},
		{name: "BadURL", edit: func(m map[string]any) { m["url"] = "not a url" }, field: "hardware[0].url"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			item := woodScrews()
			tc.edit(item)
			for _, req := range []struct {
				method, path string
				body         map[string]any
			}{
				{http.MethodPost, "/api/projects", map[string]any{"title": "x", "hardware": []any{item}}},
				{http.MethodPatch, "/api/projects/" + created.ID, map[string]any{"hardware": []any{item}}},
			} {
				rec := doJSON(t, router, req.method, req.path, req.body)
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("%s %s: expected 400, got %d", req.method, req.path, rec.Code)
				}
				body := decodeBody[errorResponse](t, rec)
				if _, ok := body.Fields[tc.field]; !ok {
					t.Fatalf("%s %s: expected %s field error, got %v", req.method, req.path, tc.field, body.Fields)
				}
			}
		})
	}
}

func TestProjectNotesEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createProject(t, router, "Desk")
	base := "/api/projects/" + created.ID + "/notes"

	rec := doJSON(t, router, http.MethodPost, base, map[string]any{"content": "Glued up the top"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decodeBody[storage.Note](t, rec)
	if first.ID == "" || first.ProjectID != created.ID || first.Content != "Glued up the top" {
		t.Fatalf("unexpected note %+v", first)
	}

	rec = doJSON(t, router, http.MethodPost, base, map[string]any{"content": "Oiled", "imageUrl": "https://example.com/desk.jpg"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	second := decodeBody[storage.Note](t, rec)

	rec = doJSON(t, router, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decodeBody[notesResponse](t, rec)
	if len(list.Notes) != 2 || list.Notes[0].ID != second.ID || list.Notes[0].ImageURL != "https://example.com/desk.jpg" {
		t.Fatalf("expected newest note first, got %+v", list.Notes)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/notes/"+first.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "EmptyContent", method: http.MethodPost, path: base, body: map[string]any{"content": ""}, status: http.StatusBadRequest},
		{name: "BadImageURL", method: http.MethodPost, path: base, body: map[string]any{"content": "x", "imageUrl": "not a url"}, status: http.StatusBadRequest},
		{name: "UnknownProjectList", method: http.MethodGet, path: "/api/projects/missing/notes", status: http.StatusNotFound},
		{name: "UnknownProjectAdd", method: http.MethodPost, path: "/api/projects/missing/notes", body: map[string]any{"content": "x"}, status: http.StatusNotFound},
		{name: "DeletedNote", method: http.MethodDelete, path: "/api/notes/" + first.ID, status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestImportCutList(t *testing.T) {
	router, _ := setupTestRouter(t)

	csvBody := "Part,Qty,Length,Width,Thickness,Material\nLeg,4,29,3.5,1.5,Pine\nTop,1,48,24,3/4,Plywood\n"
	req := httptest.NewRequest(http.MethodPost, "/api/cut-list/import", strings.NewReader(csvBody))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Items  []optimizer.CutListItem `json:"items"`
		Errors []string                `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 2 || len(body.Errors) != 0 {
		t.Fatalf("unexpected import %+v", body)
	}
	if body.Items[1].Thickness != 0.75 {
		t.Fatalf("expected fractional thickness to parse, got %v", body.Items[1].Thickness)
	}

	t.Run("UnsupportedMediaType", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cut-list/import", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("expected 415, got %d", rec.Code)
		}
	})
}

func TestTemplateEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)
	lib := templates.Default()
	first := lib.List()[0]

	t.Run("List", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/templates", nil)
		body := decodeBody[templatesResponse](t, rec)
		if len(body.Templates) != len(lib.List()) {
			t.Fatalf("expected %d templates, got %d", len(lib.List()), len(body.Templates))
		}
	})

	t.Run("ByCategory", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/templates?category="+first.Category, nil)
		body := decodeBody[templatesResponse](t, rec)
		if len(body.Templates) == 0 {
			t.Fatalf("expected templates in category %s", first.Category)
		}
		for _, tmpl := range body.Templates {
			if tmpl.Category != first.Category {
				t.Fatalf("unexpected category %s", tmpl.Category)
			}
		}
	})

	t.Run("Get", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/templates/"+first.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := decodeBody[templates.Template](t, rec); got.ID != first.ID {
			t.Fatalf("expected %s, got %s", first.ID, got.ID)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/templates/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("CreateProject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/templates/"+first.ID+"/projects", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		project := decodeBody[storage.Project](t, rec)
		if project.Title != first.Name || len(project.CutList) != len(first.CutList) {
			t.Fatalf("project does not match template: %+v", project)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := newTestHandler(t, storage.NewMemoryStorage(), WithMetrics(NewMetrics(reg)))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec := doJSON(t, router, http.MethodPost, "/api/optimize", map[string]any{"cutList": []any{pineRail()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	out := rec.Body.String()
	for _, want := range []string{
		`cutlist_optimizations_total 1`,
		`cutlist_boards_recommended_total{material="Pine"} 1`,
		`cutlist_http_requests_total{method="POST",route="/api/optimize",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, out)
		}
	}
}

func TestMetricsEndpointAbsentWithoutMetrics(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
