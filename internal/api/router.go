package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes = 10 << 20

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.enableLogging = enabled
	}
}

// WithRateLimiter overrides the default request rate limiter (primarily for tests).
func WithRateLimiter(limiter rateLimiter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.rateLimiter = limiter
	}
}

// WithRateLimit installs a token bucket allowing rps requests per second with
// the given burst. A zero rate disables limiting.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		if rps <= 0 {
			cfg.rateLimiter = nil
			return
		}
		cfg.rateLimiter = newTokenBucketLimiter(rps, burst)
	}
}

// WithCORSOrigins restricts cross-origin requests to the listed origins.
// "*" allows any origin.
func WithCORSOrigins(origins []string) RouterOption {
	return func(cfg *routerConfig) {
		if len(origins) > 0 {
			cfg.corsOrigins = origins
		}
	}
}

// WithMaxBodyBytes caps request bodies. Non-positive values keep the default.
func WithMaxBodyBytes(n int64) RouterOption {
	return func(cfg *routerConfig) {
		if n > 0 {
			cfg.maxBodyBytes = n
		}
	}
}

type routerConfig struct {
	enableLogging bool
	logger        *zap.Logger
	rateLimiter   rateLimiter
	corsOrigins   []string
	maxBodyBytes  int64
}

// NewRouter creates an HTTP router with standard middleware. Middleware runs
// outermost first: request id, rate limit, access log, panic recovery, CORS,
// body limit and, when the handler carries metrics, request metrics.
func NewRouter(handler *Handler, logger *zap.Logger, opts ...RouterOption) http.Handler {
	cfg := routerConfig{
		enableLogging: true,
		logger:        logger,
		rateLimiter:   newTokenBucketLimiter(25, 50),
		corsOrigins:   []string{"*"},
		maxBodyBytes:  defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	if cfg.rateLimiter != nil {
		limiter := cfg.rateLimiter
		r.Use(func(next http.Handler) http.Handler { return rateLimitMiddleware(limiter, next) })
	}
	if cfg.enableLogging {
		r.Use(func(next http.Handler) http.Handler { return loggingMiddleware(cfg.logger, next) })
	}
	r.Use(func(next http.Handler) http.Handler { return recoveryMiddleware(cfg.logger, next) })
	r.Use(corsMiddleware(cfg.corsOrigins))
	r.Use(bodyLimitMiddleware(cfg.maxBodyBytes))
	if handler.metrics != nil {
		r.Use(handler.metrics.middleware)
		r.Method(http.MethodGet, "/metrics", handler.metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", "no route matches the request")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "the route does not support this method")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.handleHealth)
		r.Post("/optimize", handler.handleOptimize)

		r.Get("/materials", handler.handleListMaterials)
		r.Get("/materials/best-match", handler.handleBestMatch)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", handler.handleListProjects)
			r.Post("/", handler.handleCreateProject)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handler.handleGetProject)
				r.Patch("/", handler.handleUpdateProject)
				r.Delete("/", handler.handleDeleteProject)
				r.Post("/clone", handler.handleCloneProject)
				r.Get("/optimization", handler.handleProjectOptimization)
				r.Get("/shopping-list", handler.handleProjectShoppingList)
				r.Get("/notes", handler.handleListNotes)
				r.Post("/notes", handler.handleAddNote)
			})
		})

		r.Delete("/notes/{id}", handler.handleDeleteNote)

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", handler.handleListInventory)
			r.Post("/", handler.handleCreateInventoryItem)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handler.handleGetInventoryItem)
				r.Patch("/", handler.handleUpdateInventoryItem)
				r.Delete("/", handler.handleDeleteInventoryItem)
			})
		})

		r.Post("/shopping-list", handler.handleShoppingList)
		r.Post("/cut-list/import", handler.handleImportCutList)

		r.Get("/templates", handler.handleListTemplates)
		r.Get("/templates/{id}", handler.handleGetTemplate)
		r.Post("/templates/{id}/projects", handler.handleCreateFromTemplate)
	})

	return r
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

func bodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		requestID := requestIDFromContext(r.Context())
		logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
			zap.String("request_id", requestID),
		)
	})
}

func recoveryMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("request_id", requestIDFromContext(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "Internal error", "unexpected server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = generateRequestID()
		}
		ctx := contextWithRequestID(r.Context(), requestID)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
