package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anhkiet307/swapstation/core/dispatch/logging"
	"github.com/anhkiet307/swapstation/core/events"
	"github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/logger"
	"github.com/anhkiet307/swapstation/core/metrics"
	"github.com/anhkiet307/swapstation/core/model"
	"github.com/anhkiet307/swapstation/core/monitoring"
	"github.com/anhkiet307/swapstation/internal/eventbus"
)

// Request selects the two slots of a dispatch by id.
type Request struct {
	SourceID int64 `json:"source_id"`
	TargetID int64 `json:"target_id"`
}

// Result is the final state of one dispatch attempt. Committed is set only
// when State is StateCommitted.
type Result struct {
	AttemptID string     `json:"attempt_id"`
	State     State      `json:"state"`
	Outcome   Outcome    `json:"outcome"`
	Committed *Committed `json:"committed,omitempty"`
	Error     string     `json:"error,omitempty"`
	Time      time.Time  `json:"time"`
}

// DispatchManager runs dispatch attempts end to end and records their outcome.
type DispatchManager struct {
	store       inventory.Reader
	engine      *Engine
	executor    *Executor
	logger      logger.Logger
	metrics     metrics.MetricsSink
	bus         eventbus.EventBus
	notifier    Notifier
	logStore    logging.LogStore
	historySize int
	history     []Result
	mu          sync.Mutex
}

// NewDispatchManager creates a new manager. sink and bus may be nil.
func NewDispatchManager(store inventory.Reader, engine *Engine, executor *Executor, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*DispatchManager, error) {
	if store == nil || engine == nil || executor == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewDispatchManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &DispatchManager{
		store:       store,
		engine:      engine,
		executor:    executor,
		logger:      log,
		metrics:     sink,
		bus:         bus,
		notifier:    NopNotifier{},
		historySize: 100,
	}, nil
}

// SetLogStore configures the store used to persist dispatch logs.
func (m *DispatchManager) SetLogStore(store logging.LogStore) {
	m.mu.Lock()
	m.logStore = store
	m.mu.Unlock()
}

// SetNotifier configures the notifier used after each commit.
func (m *DispatchManager) SetNotifier(n Notifier) {
	if n == nil {
		n = NopNotifier{}
	}
	m.mu.Lock()
	m.notifier = n
	m.mu.Unlock()
}

// SetHistorySize bounds the number of results kept by History. Zero
// disables history.
func (m *DispatchManager) SetHistorySize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historySize = n
	if len(m.history) > n {
		m.history = append([]Result(nil), m.history[len(m.history)-n:]...)
	}
}

// Engine returns the engine in use.
func (m *DispatchManager) Engine() *Engine { return m.engine }

// Evaluate previews the decision for a pair without executing it.
func (m *DispatchManager) Evaluate(ctx context.Context, sourceID, targetID int64) (Outcome, error) {
	if sourceID == 0 || targetID == 0 {
		return Outcome{}, ErrMissingSelection
	}
	src, dst, err := m.fetchPair(ctx, sourceID, targetID)
	if err != nil {
		return Outcome{}, err
	}
	return m.engine.Evaluate(&src, &dst)
}

// Dispatch runs one attempt: fetch both slots, evaluate the pair and, when
// approved, execute the swap. A rejection is reported in the Result with a
// nil error. System faults are returned unchanged next to a Result holding
// the state the attempt stopped in.
//
//gocyclo:ignore
func (m *DispatchManager) Dispatch(ctx context.Context, req Request) (Result, error) {
	if req.SourceID == 0 || req.TargetID == 0 {
		return Result{State: StateSelecting, Error: ErrMissingSelection.Error(), Time: time.Now()}, ErrMissingSelection
	}
	att := NewAttempt(uuid.NewString())
	start := time.Now()
	res := Result{AttemptID: att.ID, State: StateSelecting, Time: start}
	m.publish(att, req, ViolationNone, nil)

	src, dst, err := m.fetchPair(ctx, req.SourceID, req.TargetID)
	if err != nil {
		m.logger.Warnf("dispatch %s: fetch %d/%d: %v", att.ID, req.SourceID, req.TargetID, err)
		m.fault(att, req, err)
		return m.finish(ctx, att, req, res, nil, nil, start, err), err
	}

	m.advance(att, req, StateEvaluating, ViolationNone, nil)
	out, err := m.engine.Evaluate(&src, &dst)
	if err != nil {
		return m.finish(ctx, att, req, res, nil, nil, start, err), err
	}
	res.Outcome = out
	before := []model.PinSlot{src, dst}
	if !out.Approved {
		v := out.Violation()
		ruleRejections.WithLabelValues(v.String()).Inc()
		m.advance(att, req, StateRejected, v, nil)
		m.logger.Infow("dispatch rejected", map[string]any{
			"attempt_id": att.ID,
			"source_id":  req.SourceID,
			"target_id":  req.TargetID,
			"violation":  v.String(),
		})
		res.State = att.State()
		return m.finish(ctx, att, req, res, before, nil, start, nil), nil
	}

	m.advance(att, req, StateApproved, ViolationNone, nil)
	m.advance(att, req, StateExecuting, ViolationNone, nil)
	committed, err := m.executor.Execute(ctx, &src, &dst)
	if err != nil {
		m.advance(att, req, StatePersistenceFailure, ViolationNone, err)
		m.logger.Errorf("dispatch %s: execute %d/%d: %v", att.ID, req.SourceID, req.TargetID, err)
		m.fault(att, req, err)
		res.State = att.State()
		return m.finish(ctx, att, req, res, before, nil, start, err), err
	}
	m.advance(att, req, StateCommitted, ViolationNone, nil)
	res.State = att.State()
	res.Committed = &committed
	after := []model.PinSlot{committed.Source, committed.Target}
	if m.bus != nil {
		m.bus.Publish(events.CommitEvent{
			AttemptID: att.ID,
			Before:    [2]model.PinSlot{src, dst},
			After:     [2]model.PinSlot{committed.Source, committed.Target},
			Time:      time.Now(),
		})
	}
	m.mu.Lock()
	n := m.notifier
	m.mu.Unlock()
	if err := n.NotifySlots(ctx, committed.Source, committed.Target); err != nil {
		m.logger.Warnf("dispatch %s: notify stations: %v", att.ID, err)
	}
	m.logger.Infow("dispatch committed", map[string]any{
		"attempt_id": att.ID,
		"source_id":  req.SourceID,
		"target_id":  req.TargetID,
	})
	return m.finish(ctx, att, req, res, before, after, start, nil), nil
}

// History returns the most recent results, oldest first.
func (m *DispatchManager) History() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Result, len(m.history))
	copy(out, m.history)
	return out
}

// Close releases resources held by the manager.
func (m *DispatchManager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	m.mu.Lock()
	store := m.logStore
	m.mu.Unlock()
	if store != nil {
		return store.Close()
	}
	return nil
}

func (m *DispatchManager) fetchPair(ctx context.Context, sourceID, targetID int64) (model.PinSlot, model.PinSlot, error) {
	src, err := m.store.FetchSlot(ctx, sourceID)
	if err != nil {
		return model.PinSlot{}, model.PinSlot{}, err
	}
	dst, err := m.store.FetchSlot(ctx, targetID)
	if err != nil {
		return model.PinSlot{}, model.PinSlot{}, err
	}
	return src, dst, nil
}

func (m *DispatchManager) advance(att *Attempt, req Request, next State, v Violation, cause error) {
	if err := att.Transition(next); err != nil {
		m.logger.Errorf("dispatch %s: %v", att.ID, err)
		return
	}
	m.publish(att, req, v, cause)
}

func (m *DispatchManager) publish(att *Attempt, req Request, v Violation, cause error) {
	if m.bus == nil {
		return
	}
	ev := events.AttemptEvent{
		AttemptID: att.ID,
		SourceID:  req.SourceID,
		TargetID:  req.TargetID,
		State:     att.State().String(),
		Err:       cause,
		Time:      time.Now(),
	}
	if v != ViolationNone {
		ev.Violation = v.String()
	}
	m.bus.Publish(ev)
}

// fault reports system faults to the monitor. Stale snapshots and unknown
// ids are expected under normal operation and are not reported.
func (m *DispatchManager) fault(att *Attempt, req Request, err error) {
	if errors.Is(err, inventory.ErrConcurrentModification) ||
		errors.Is(err, inventory.ErrNotFound) ||
		errors.Is(err, context.Canceled) {
		return
	}
	monitoring.CaptureException(err, map[string]string{
		"component":  "dispatch",
		"attempt_id": att.ID,
		"source_id":  strconv.FormatInt(req.SourceID, 10),
		"target_id":  strconv.FormatInt(req.TargetID, 10),
		"state":      att.State().String(),
	})
}

// finish records the attempt on the metrics sink, the audit log and the
// in-memory history, then returns res.
func (m *DispatchManager) finish(ctx context.Context, att *Attempt, req Request, res Result, before, after []model.PinSlot, start time.Time, cause error) Result {
	res.State = att.State()
	if cause != nil {
		res.Error = cause.Error()
	}
	var stationID int64
	if len(before) > 0 {
		stationID = before[0].StationID
	}
	ev := metrics.DispatchAttemptEvent{
		AttemptID: att.ID,
		SourceID:  req.SourceID,
		TargetID:  req.TargetID,
		StationID: stationID,
		State:     res.State.String(),
		Latency:   time.Since(start),
		Error:     res.Error,
		Time:      time.Now(),
	}
	if v := res.Outcome.Violation(); v != ViolationNone {
		ev.Violation = v.String()
	}
	if err := m.metrics.RecordDispatchAttempt(ev); err != nil {
		m.logger.Errorf("metrics error: %v", err)
	}

	m.mu.Lock()
	store := m.logStore
	if m.historySize > 0 {
		m.history = append(m.history, res)
		if len(m.history) > m.historySize {
			m.history = m.history[len(m.history)-m.historySize:]
		}
	}
	m.mu.Unlock()

	if store != nil {
		rec := logging.LogRecord{
			Timestamp: res.Time,
			AttemptID: att.ID,
			SourceID:  req.SourceID,
			TargetID:  req.TargetID,
			State:     res.State.String(),
			Violation: ev.Violation,
			Error:     res.Error,
			Before:    before,
			After:     after,
		}
		if res.Outcome.Rejection != nil {
			rec.Message = res.Outcome.Rejection.Message()
		}
		// The audit record must be written even when the caller's context
		// is already done.
		if err := store.Append(context.WithoutCancel(ctx), rec); err != nil {
			m.logger.Errorf("dispatch log error: %v", err)
		}
	}
	return res
}
