package dispatch

import (
	"net/http"
	"strconv"
	"time"

	"github.com/anhkiet307/swapstation/core/dispatch/logging"
	"github.com/anhkiet307/swapstation/core/logger"
	"github.com/anhkiet307/swapstation/internal/httpjson"
)

// NewLogHandler returns an HTTP handler exposing dispatch logs via GET /api/dispatch/logs.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
// Supported filters: start, end (RFC3339), slot_id, state and limit.
func NewLogHandler(store logging.LogStore, token string, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				httpjson.Error(w, r, log, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
		}
		v := r.URL.Query()
		q := logging.LogQuery{State: v.Get("state")}
		if s := v.Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := v.Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		if s := v.Get("slot_id"); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil || id <= 0 {
				httpjson.Error(w, r, log, http.StatusBadRequest, "invalid_query", "invalid slot_id")
				return
			}
			q.SlotID = id
		}
		if s := v.Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				httpjson.Error(w, r, log, http.StatusBadRequest, "invalid_query", "invalid limit")
				return
			}
			q.Limit = n
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			httpjson.Error(w, r, log, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		httpjson.Write(w, r, log, http.StatusOK, records)
	})
}
