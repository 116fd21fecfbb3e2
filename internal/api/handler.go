package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cutlist-optimizer/internal/catalog"
	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
	"github.com/eugenenazirov/cutlist-optimizer/internal/templates"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const healthCheckTimeout = 2 * time.Second

// Catalog is the product lookup the handlers serve.
type Catalog interface {
	AllProducts() []catalog.Product
	ProductsByMaterial(material string) []catalog.Product
	BestMatch(material string, length, width, thickness float64) (catalog.Product, bool)
	Materials() []string
}

// TemplateLibrary provides the starter projects.
type TemplateLibrary interface {
	List() []templates.Template
	Get(id string) (templates.Template, error)
	ByCategory(category string) []templates.Template
	ByDifficulty(difficulty string) []templates.Template
}

// Handler wires the optimizer, catalog, project storage and template
// dependencies into HTTP handlers.
type Handler struct {
	optimizer optimizer.Optimizer
	catalog   Catalog
	storage   storage.Storage
	templates TemplateLibrary

	logger  *zap.Logger
	metrics *Metrics
	clock   func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLogger sets the logger used for errors the client does not see in full.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records optimization metrics and makes NewRouter expose
// request metrics on /metrics.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(opt optimizer.Optimizer, cat Catalog, store storage.Storage, lib TemplateLibrary, opts ...HandlerOption) *Handler {
	h := &Handler{
		optimizer: opt,
		catalog:   cat,
		storage:   store,
		templates: lib,
		logger:    zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Storage:   "ok",
		Timestamp: h.clock(),
	}
	status := http.StatusOK
	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("storage health check failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Storage = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[optimizeRequest](w, r, false)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.optimize(toCutList(req.CutList)))
}

// optimize runs the optimizer and records how long it took.
func (h *Handler) optimize(items []optimizer.CutListItem) optimizeResponse {
	start := time.Now()
	result := h.optimizer.Optimize(items)
	elapsed := time.Since(start)

	h.metrics.observeOptimization(result)

	return optimizeResponse{
		Result:            result,
		WasteBoardFeet:    optimizer.WasteBoardFeet(result),
		Summary:           optimizer.Summarize(items),
		CalculationTimeMs: elapsed.Milliseconds(),
	}
}

func (h *Handler) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	material := strings.TrimSpace(r.URL.Query().Get("material"))

	resp := materialsResponse{Materials: h.catalog.Materials()}
	if material == "" {
		resp.Products = h.catalog.AllProducts()
	} else {
		resp.Products = h.catalog.ProductsByMaterial(material)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBestMatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	material := strings.TrimSpace(q.Get("material"))
	if material == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "material is required")
		return
	}

	var dims [3]float64
	for i, name := range []string{"length", "width", "thickness"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil || !(v > 0) || math.IsInf(v, 1) {
			writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("%s must be a positive number", name))
			return
		}
		dims[i] = v
	}

	product, found := h.catalog.BestMatch(material, dims[0], dims[1], dims[2])
	if !found {
		writeError(w, http.StatusNotFound, "No matching product",
			fmt.Sprintf("no %s board covers %g x %g x %g", material, dims[0], dims[1], dims[2]),
			"Try a different material or split the piece.")
		return
	}
	writeJSON(w, http.StatusOK, bestMatchResponse{
		Product:             product,
		EstimatedPiecePrice: catalog.EstimatePricePerPiece(product, dims[0], dims[1], dims[2]).Round(2),
	})
}

// bestMatchResponse is the matched product plus what one piece of the
// requested size costs when cut from it.
type bestMatchResponse struct {
	catalog.Product
	EstimatedPiecePrice decimal.Decimal `json:"estimatedPiecePrice"`
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Storage   string    `json:"storage"`
	Timestamp time.Time `json:"timestamp"`
}

type materialsResponse struct {
	Materials []string          `json:"materials"`
	Products  []catalog.Product `json:"products"`
}

type errorResponse struct {
	Error      string            `json:"error"`
	Details    string            `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func (h *Handler) writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)
	writeError(w, http.StatusInternalServerError, "Internal error", "unexpected server error")
}
