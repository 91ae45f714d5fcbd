package dispatch

import (
	"context"
	"errors"
	"net/http"

	core "github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/logger"
	"github.com/anhkiet307/swapstation/internal/httpjson"
)

// Service is the part of the dispatch manager used by the handlers.
type Service interface {
	Dispatch(ctx context.Context, req core.Request) (core.Result, error)
	Evaluate(ctx context.Context, sourceID, targetID int64) (core.Outcome, error)
}

// NewDispatchHandler serves POST /api/dispatch. A committed swap answers 200
// and a rule rejection 422, both with the dispatch result as body.
func NewDispatchHandler(svc Service, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req core.Request
		if !httpjson.Decode(w, r, log, &req) {
			return
		}
		res, err := svc.Dispatch(r.Context(), req)
		if err != nil {
			writeFault(w, r, log, err)
			return
		}
		status := http.StatusOK
		if res.State == core.StateRejected {
			status = http.StatusUnprocessableEntity
		}
		httpjson.Write(w, r, log, status, res)
	})
}

// NewEvaluateHandler serves POST /api/dispatch/evaluate. The outcome is
// returned with 200 whether approved or not; nothing is written.
func NewEvaluateHandler(svc Service, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req core.Request
		if !httpjson.Decode(w, r, log, &req) {
			return
		}
		out, err := svc.Evaluate(r.Context(), req.SourceID, req.TargetID)
		if err != nil {
			writeFault(w, r, log, err)
			return
		}
		httpjson.Write(w, r, log, http.StatusOK, out)
	})
}

// StatusFor maps dispatch errors to HTTP status codes and error codes.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrMissingSelection):
		return http.StatusBadRequest, "missing_selection"
	case errors.Is(err, core.ErrSameSlot):
		return http.StatusBadRequest, "same_slot"
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrConsistencyFault):
		return http.StatusInternalServerError, "consistency_fault"
	case errors.Is(err, inventory.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification"
	case errors.Is(err, core.ErrPersistenceFailure):
		return http.StatusInternalServerError, "persistence_failure"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeFault(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, code := StatusFor(err)
	httpjson.Error(w, r, log, status, code, err.Error())
}
