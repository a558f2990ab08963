// Package gate implements confirmation-guarded mutations.
//
// A mutating admin action is never executed when it is requested. It is
// recorded as a pending Descriptor, one per (user, resource). The mutation
// only runs when the same user confirms that descriptor; closing it discards
// the request with no side effect. Opening a second descriptor replaces the
// first.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Gate errors.
var (
	// ErrNoPending is returned when no descriptor is open for the key.
	ErrNoPending = errors.New("no pending action")

	// ErrStaleDescriptor is returned when a confirmation names a descriptor
	// that has since been replaced.
	ErrStaleDescriptor = errors.New("pending action was replaced")

	// ErrPreconditionFailed is returned when the confirmation input does not
	// satisfy the descriptor (e.g. a missing or short reason). The descriptor
	// stays open.
	ErrPreconditionFailed = errors.New("confirmation precondition not met")
)

// Key scopes a pending descriptor.
type Key struct {
	UserID   string
	Resource string
}

func (k Key) String() string { return k.UserID + "/" + k.Resource }

// Descriptor is a pending, not yet executed, mutation.
type Descriptor struct {
	ID              string          `json:"id"`
	Resource        string          `json:"resource"`
	Verb            string          `json:"verb"`
	Title           string          `json:"title"`
	Message         string          `json:"message"`
	IsDangerous     bool            `json:"is_dangerous"`
	TargetIDs       []string        `json:"target_ids,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	RequiresReason  bool            `json:"requires_reason"`
	MinReasonLength int             `json:"min_reason_length,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ConfirmInput is what the user submits with a confirmation.
type ConfirmInput struct {
	// DescriptorID optionally pins the confirmation to a specific descriptor.
	DescriptorID string `json:"descriptor_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Check validates in against the descriptor's precondition.
func (d Descriptor) Check(in ConfirmInput) error {
	if !d.RequiresReason {
		return nil
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return fmt.Errorf("%w: reason is required", ErrPreconditionFailed)
	}
	if d.MinReasonLength > 0 && utf8.RuneCountInString(reason) < d.MinReasonLength {
		return fmt.Errorf("%w: reason must be at least %d characters", ErrPreconditionFailed, d.MinReasonLength)
	}
	return nil
}

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a user-facing toast produced by a confirmed action.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Outcome is the result of a confirmed action.
type Outcome struct {
	Verb          string         `json:"verb"`
	Succeeded     []string       `json:"succeeded,omitempty"`
	Failed        []string       `json:"failed,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// OK reports whether nothing failed.
func (o Outcome) OK() bool { return !o.has(LevelError) }

// Changed reports whether at least part of the action went through.
func (o Outcome) Changed() bool { return o.has(LevelSuccess) }

func (o Outcome) has(l Level) bool {
	for _, n := range o.Notifications {
		if n.Level == l {
			return true
		}
	}
	return false
}

// Success builds the outcome of a mutation that went through.
func Success(verb, message string, ids []string) Outcome {
	return Outcome{
		Verb:          verb,
		Succeeded:     ids,
		Notifications: []Notification{{Level: LevelSuccess, Message: message}},
	}
}

// Failure builds the outcome of a mutation that was rejected.
func Failure(verb, message string, ids []string) Outcome {
	return Outcome{
		Verb:          verb,
		Failed:        ids,
		Notifications: []Notification{{Level: LevelError, Message: message}},
	}
}

// Executor performs the mutation described by d.
type Executor func(ctx context.Context, d Descriptor, in ConfirmInput) Outcome

// Gate coordinates descriptors held in a Store.
type Gate struct {
	store Store
	now   func() time.Time
	newID func() string
}

// New returns a gate backed by store.
func New(store Store) *Gate {
	return &Gate{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Open records d as the pending action for key, replacing any previous one.
// The stored descriptor gets a fresh ID and creation time.
func (g *Gate) Open(ctx context.Context, key Key, d Descriptor) (Descriptor, error) {
	d.ID = g.newID()
	d.Resource = key.Resource
	d.CreatedAt = g.now().UTC()
	if err := g.store.Put(ctx, key, d); err != nil {
		return Descriptor{}, fmt.Errorf("open gate %s: %w", key, err)
	}
	return d, nil
}

// Pending returns the open descriptor for key.
func (g *Gate) Pending(ctx context.Context, key Key) (Descriptor, error) {
	return g.store.Get(ctx, key)
}

// Close discards the pending descriptor for key. Closing an empty gate is not
// an error.
func (g *Gate) Close(ctx context.Context, key Key) error {
	return g.store.Delete(ctx, key)
}

// Confirm validates in, consumes the pending descriptor and only then runs
// exec. A descriptor can be confirmed at most once; a concurrent second
// confirmation gets ErrNoPending. A failed precondition leaves the
// descriptor open.
func (g *Gate) Confirm(ctx context.Context, key Key, in ConfirmInput, exec Executor) (Outcome, Descriptor, error) {
	d, err := g.store.Get(ctx, key)
	if err != nil {
		return Outcome{}, Descriptor{}, err
	}
	if in.DescriptorID != "" && in.DescriptorID != d.ID {
		return Outcome{}, d, ErrStaleDescriptor
	}
	if err := d.Check(in); err != nil {
		return Outcome{}, d, err
	}
	taken, err := g.store.Take(ctx, key, d.ID)
	if err != nil {
		return Outcome{}, d, err
	}
	return exec(ctx, taken, in), taken, nil
}
