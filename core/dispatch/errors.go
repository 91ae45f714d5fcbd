package dispatch

import "errors"

var (
	// ErrMissingSelection is returned when the source or target slot was not
	// provided. It is a caller error, not a rule violation.
	ErrMissingSelection = errors.New("source or target slot not selected")
	// ErrSameSlot is returned by the executor when asked to swap a slot with
	// itself.
	ErrSameSlot = errors.New("source and target are the same slot")
	// ErrPersistenceFailure wraps any failure to persist a dispatch.
	ErrPersistenceFailure = errors.New("dispatch persistence failure")
	// ErrConsistencyFault means storage may hold one side of a swap only.
	// It must never be retried automatically.
	ErrConsistencyFault = errors.New("dispatch consistency fault")
	// ErrInvalidTransition is returned for a state change the attempt state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid dispatch state transition")
)
