// Package api wires the HTTP handlers of the service into a chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	dispatchapi "github.com/anhkiet307/swapstation/api/dispatch"
	"github.com/anhkiet307/swapstation/api/slots"
	"github.com/anhkiet307/swapstation/core/dispatch/logging"
	"github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/logger"
	"github.com/anhkiet307/swapstation/internal/httpjson"
)

// Deps are the collaborators of the router. Logs may be nil, which leaves
// the audit endpoint unmounted.
type Deps struct {
	Dispatch  dispatchapi.Service
	Slots     inventory.Reader
	Logs      logging.LogStore
	LogsToken string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Logger    logger.Logger
}

// NewRouter constructs a chi-based http.Handler with base middleware and routes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	if d.Timeout > 0 {
		r.Use(middleware.Timeout(d.Timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, r, d.Logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if d.RateLimit > 0 {
			r.Use(RateLimit(rate.NewLimiter(rate.Limit(d.RateLimit), d.Burst), d.Logger))
		}
		r.Method(http.MethodPost, "/dispatch", dispatchapi.NewDispatchHandler(d.Dispatch, d.Logger))
		r.Method(http.MethodPost, "/dispatch/evaluate", dispatchapi.NewEvaluateHandler(d.Dispatch, d.Logger))
		if d.Logs != nil {
			r.Method(http.MethodGet, "/dispatch/logs", dispatchapi.NewLogHandler(d.Logs, d.LogsToken, d.Logger))
		}
		r.Method(http.MethodGet, "/stations/{stationID}/slots", slots.NewStationSlotsHandler(d.Slots, d.Logger))
		r.Method(http.MethodGet, "/slots/{slotID}", slots.NewSlotHandler(d.Slots, d.Logger))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpjson.Error(w, r, d.Logger, http.StatusNotFound, "not_found", "route not found")
	})
	return r
}

// RateLimit rejects requests with 429 once the token bucket is empty.
func RateLimit(l *rate.Limiter, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				httpjson.Error(w, r, log, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if log == nil {
				next.ServeHTTP(w, r)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("http request", map[string]any{
				"req_id":   httpjson.ReqID(r.Context()),
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			})
		})
	}
}
