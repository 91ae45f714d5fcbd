package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/infra/logger"
)

type stubService struct {
	dispatchFn func(ctx context.Context, req core.Request) (core.Result, error)
	evaluateFn func(ctx context.Context, src, dst int64) (core.Outcome, error)
}

func (s *stubService) Dispatch(ctx context.Context, req core.Request) (core.Result, error) {
	return s.dispatchFn(ctx, req)
}

func (s *stubService) Evaluate(ctx context.Context, src, dst int64) (core.Outcome, error) {
	return s.evaluateFn(ctx, src, dst)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestDispatchHandler_Statuses(t *testing.T) {
	cases := []struct {
		name string
		res  core.Result
		err  error
		want int
		code string
	}{
		{"committed", core.Result{State: core.StateCommitted, Outcome: core.Outcome{Approved: true}}, nil, http.StatusOK, ""},
		{"rejected", core.Result{State: core.StateRejected, Outcome: core.Outcome{Rejection: &core.Rejection{Violation: core.HealthTooLow}}}, nil, http.StatusUnprocessableEntity, ""},
		{"missing selection", core.Result{}, core.ErrMissingSelection, http.StatusBadRequest, "missing_selection"},
		{"not found", core.Result{}, fmt.Errorf("slot 9: %w", inventory.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", core.Result{}, fmt.Errorf("stale: %w", inventory.ErrConcurrentModification), http.StatusConflict, "concurrent_modification"},
		{"persistence", core.Result{}, fmt.Errorf("%w: disk full", core.ErrPersistenceFailure), http.StatusInternalServerError, "persistence_failure"},
		{"consistency", core.Result{}, fmt.Errorf("%w: %w", core.ErrConsistencyFault, inventory.ErrRollbackFailed), http.StatusInternalServerError, "consistency_fault"},
		{"unknown", core.Result{}, errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{dispatchFn: func(_ context.Context, req core.Request) (core.Result, error) {
				assert.Equal(t, core.Request{SourceID: 139, TargetID: 140}, req)
				return tc.res, tc.err
			}}
			rr := post(t, NewDispatchHandler(svc, logger.NopLogger{}), `{"source_id":139,"target_id":140}`)
			require.Equal(t, tc.want, rr.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			if tc.err != nil {
				assert.Equal(t, tc.code, body["code"])
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.Equal(t, tc.res.State.String(), body["state"])
		})
	}
}

func TestDispatchHandler_RejectionBody(t *testing.T) {
	svc := &stubService{dispatchFn: func(context.Context, core.Request) (core.Result, error) {
		return core.Result{State: core.StateRejected, Outcome: core.Outcome{Rejection: &core.Rejection{
			Violation: core.HealthTooLow, SourceID: 1, TargetID: 2, SourceValue: 90, TargetValue: 15, Limit: 20,
		}}}, nil
	}}
	rr := post(t, NewDispatchHandler(svc, logger.NopLogger{}), `{"source_id":1,"target_id":2}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body struct {
		State   string `json:"state"`
		Outcome struct {
			Approved  bool `json:"approved"`
			Rejection struct {
				Violation   string  `json:"violation"`
				TargetValue float64 `json:"target_value"`
				Limit       float64 `json:"limit"`
			} `json:"rejection"`
		} `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "rejected", body.State)
	assert.False(t, body.Outcome.Approved)
	assert.Equal(t, "health_too_low", body.Outcome.Rejection.Violation)
	assert.Equal(t, 15.0, body.Outcome.Rejection.TargetValue)
	assert.Equal(t, 20.0, body.Outcome.Rejection.Limit)
}

func TestDispatchHandler_InvalidJSON(t *testing.T) {
	svc := &stubService{dispatchFn: func(context.Context, core.Request) (core.Result, error) {
		t.Fatal("service must not be called")
		return core.Result{}, nil
	}}
	h := NewDispatchHandler(svc, logger.NopLogger{})
	for _, body := range []string{`{`, `{"source":1}`, `{"source_id":1,"target_id":2}{}`} {
		rr := post(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestEvaluateHandler(t *testing.T) {
	svc := &stubService{evaluateFn: func(_ context.Context, src, dst int64) (core.Outcome, error) {
		if dst == 999 {
			return core.Outcome{}, inventory.ErrNotFound
		}
		return core.Outcome{Rejection: &core.Rejection{Violation: core.ChargeTooLow}}, nil
	}}
	h := NewEvaluateHandler(svc, logger.NopLogger{})
	rr := post(t, h, `{"source_id":1,"target_id":2}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"violation":"charge_too_low"`)

	rr = post(t, h, `{"source_id":1,"target_id":999}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatusFor_LockBusyIsConflict(t *testing.T) {
	err := fmt.Errorf("%w: %w", inventory.ErrConcurrentModification, core.ErrLockBusy)
	status, _ := StatusFor(err)
	assert.Equal(t, http.StatusConflict, status)
}
