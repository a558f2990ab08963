// Package qualify defers an action behind a qualification step (the pharmacy
// questionnaire) and resumes it exactly once when the step passes.
package qualify

import (
	"context"
	"errors"
	"sync"
)

// State is the machine's current phase.
type State int

const (
	Idle State = iota
	Awaiting
	Approved
)

func (s State) String() string {
	switch s {
	case Awaiting:
		return "awaiting_qualification"
	case Approved:
		return "approved"
	default:
		return "idle"
	}
}

var (
	// ErrQualificationRequired is returned by Request when the action was
	// deferred until the questionnaire is resolved.
	ErrQualificationRequired = errors.New("qualification required")

	// ErrNothingPending is returned by Resolve when no action is waiting.
	ErrNothingPending = errors.New("no action awaiting qualification")

	// ErrNotQualified is returned by Resolve when the answers did not pass.
	ErrNotQualified = errors.New("not qualified")
)

// Action is a deferred operation.
type Action func(ctx context.Context) error

// Machine is an explicit Idle → Awaiting(pending) → Approved → Idle state
// machine. It is safe for concurrent use; the pending action never runs while
// the lock is held.
type Machine struct {
	mu      sync.Mutex
	state   State
	pending Action
	label   string
}

// New returns an idle machine.
func New() *Machine { return &Machine{} }

// State returns the current phase and the label of the pending action.
func (m *Machine) State() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.label
}

// Request runs action right away when needsQualification is false. Otherwise
// it stores action as the pending one, replacing any earlier pending action,
// and returns ErrQualificationRequired.
func (m *Machine) Request(ctx context.Context, label string, needsQualification bool, action Action) error {
	if !needsQualification {
		return action(ctx)
	}
	m.mu.Lock()
	m.state = Awaiting
	m.pending = action
	m.label = label
	m.mu.Unlock()
	return ErrQualificationRequired
}

// Resolve settles the questionnaire. When passed, the pending action runs
// exactly once and the machine returns to Idle regardless of the action's
// result, so the next guarded request asks again. When not passed, the
// pending action is dropped and ErrNotQualified is returned.
func (m *Machine) Resolve(ctx context.Context, passed bool) error {
	m.mu.Lock()
	if m.state != Awaiting || m.pending == nil {
		m.mu.Unlock()
		return ErrNothingPending
	}
	action := m.pending
	m.pending = nil
	m.label = ""
	if !passed {
		m.state = Idle
		m.mu.Unlock()
		return ErrNotQualified
	}
	m.state = Approved
	m.mu.Unlock()

	err := action(ctx)

	m.mu.Lock()
	// A Request that arrived while the action ran owns the state now.
	if m.state == Approved {
		m.state = Idle
	}
	m.mu.Unlock()
	return err
}

// Reset drops any pending action.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.state = Idle
	m.pending = nil
	m.label = ""
	m.mu.Unlock()
}

// Registry keeps one Machine per shopper.
type Registry struct {
	mu sync.Mutex
	m  map[string]*Machine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{m: map[string]*Machine{}} }

// For returns the machine of userID, creating it on first use.
func (r *Registry) For(userID string) *Machine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mc, ok := r.m[userID]; ok {
		return mc
	}
	mc := New()
	r.m[userID] = mc
	return mc
}
