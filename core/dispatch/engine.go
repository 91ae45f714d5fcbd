package dispatch

import "github.com/anhkiet307/swapstation/core/model"

// Engine decides whether two pin slots may exchange their charge and health
// readings. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine validates the policy and returns an engine using it.
func NewEngine(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: p}, nil
}

// Policy returns the thresholds in use.
func (e *Engine) Policy() Policy { return e.policy }

// Evaluate runs the eligibility rules over the pair. A missing slot is a
// caller error reported as ErrMissingSelection; every rule failure is
// returned as data in the Outcome.
func (e *Engine) Evaluate(source, target *model.PinSlot) (Outcome, error) {
	if source == nil || target == nil {
		return Outcome{}, ErrMissingSelection
	}
	for _, r := range rules {
		if rej := r(e.policy, source, target); rej != nil {
			return Outcome{Rejection: rej}, nil
		}
	}
	return Outcome{Approved: true}, nil
}
