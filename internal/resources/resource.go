// Package resources declares the backoffice list pages: for each entity, how
// it is fetched, filtered, sorted and exported, and which confirmed actions
// it supports.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tbourn/go-backoffice/internal/backend"
	"github.com/tbourn/go-backoffice/internal/export"
	"github.com/tbourn/go-backoffice/internal/gate"
	"github.com/tbourn/go-backoffice/internal/listview"
)

// Resource names.
const (
	ActivityLogsName      = "activity-logs"
	PharmacyQuestionsName = "pharmacy-questions"
	ReviewsName           = "reviews"
	SubscriptionsName     = "subscriptions"
	VATRatesName          = "vat-rates"
)

var (
	// ErrUnknownVerb is returned for a verb the resource does not support.
	ErrUnknownVerb = errors.New("unknown action")

	// ErrTargets is returned when the number of target ids does not fit the
	// verb, or an id cannot name a single record.
	ErrTargets = errors.New("invalid action targets")
)

// Target says how many records a verb acts on.
type Target int

const (
	// TargetOne acts on exactly one record.
	TargetOne Target = iota
	// TargetMany acts on one or more records, each attempted independently.
	TargetMany
	// TargetNone acts on the collection as a whole (create, clear-all).
	TargetNone
)

// CallFunc performs one backend mutation. id is empty for TargetNone verbs.
type CallFunc func(ctx context.Context, c *backend.Client, id string, payload json.RawMessage, reason string) error

// Verb is a confirmed action of a resource.
type Verb struct {
	Name            string
	Title           string
	Confirm         func(ids []string) string
	Dangerous       bool
	Target          Target
	RequiresReason  bool
	MinReasonLength int

	// Success and Failure are the single-target notifications; Failure is
	// the fallback when the backend sends no message.
	Success string
	Failure string

	// Past and Infinitive phrase batch notifications
	// ("3 deleted successfully", "2 failed to delete").
	Past       string
	Infinitive string

	// Validate checks the payload before a confirmation is opened.
	Validate func(payload json.RawMessage) error

	Call CallFunc
}

// Describe builds the pending descriptor for ids and payload.
func (v Verb) Describe(ids []string, payload json.RawMessage) (gate.Descriptor, error) {
	switch v.Target {
	case TargetOne:
		if len(ids) != 1 {
			return gate.Descriptor{}, fmt.Errorf("%w: %s needs exactly one id", ErrTargets, v.Name)
		}
	case TargetMany:
		if len(ids) == 0 {
			return gate.Descriptor{}, fmt.Errorf("%w: %s needs at least one id", ErrTargets, v.Name)
		}
	case TargetNone:
		if len(ids) != 0 {
			return gate.Descriptor{}, fmt.Errorf("%w: %s takes no ids", ErrTargets, v.Name)
		}
	}
	for _, id := range ids {
		if !validID(id) {
			return gate.Descriptor{}, fmt.Errorf("%w: %s: bad id %q", ErrTargets, v.Name, id)
		}
	}
	if v.Validate != nil {
		if err := v.Validate(payload); err != nil {
			return gate.Descriptor{}, err
		}
	}
	msg := ""
	if v.Confirm != nil {
		msg = v.Confirm(ids)
	}
	return gate.Descriptor{
		Verb:            v.Name,
		Title:           v.Title,
		Message:         msg,
		IsDangerous:     v.Dangerous,
		TargetIDs:       ids,
		Payload:         payload,
		RequiresReason:  v.RequiresReason,
		MinReasonLength: v.MinReasonLength,
	}, nil
}

// Execute runs the confirmed descriptor against the backend. Batch verbs run
// with at most limit calls in flight.
func (v Verb) Execute(ctx context.Context, c *backend.Client, d gate.Descriptor, in gate.ConfirmInput, limit int) gate.Outcome {
	call := func(ctx context.Context, id string) error {
		return v.Call(ctx, c, id, d.Payload, in.Reason)
	}
	var err error
	switch v.Target {
	case TargetMany:
		return gate.RunBatch(ctx, d.TargetIDs, limit, call).Outcome(v.Name, v.Past, v.Infinitive)
	case TargetNone:
		err = call(ctx, "")
	default:
		err = call(ctx, d.TargetIDs[0])
	}
	if err != nil {
		return gate.Failure(v.Name, backend.MessageOf(err, v.Failure), d.TargetIDs)
	}
	return gate.Success(v.Name, v.Success, d.TargetIDs)
}

// Definition describes one list page over entity T.
type Definition[T any] struct {
	Name string
	// Path is the backend collection path.
	Path string
	Spec *listview.Spec[T]
	// Params are server-side pre-filters sent with every fetch. Keys listed
	// here may be overridden per request; other keys are ignored.
	Params  map[string]string
	Verbs   map[string]Verb
	Columns []export.Column[T]
}

// Query merges overrides into the default pre-filters.
func (d *Definition[T]) Query(overrides url.Values) url.Values {
	q := url.Values{}
	for k, v := range d.Params {
		q.Set(k, v)
		if o := overrides.Get(k); o != "" {
			q.Set(k, o)
		}
	}
	return q
}

// Verb looks up a verb by name.
func (d *Definition[T]) Verb(name string) (Verb, error) {
	v, ok := d.Verbs[name]
	if !ok {
		return Verb{}, fmt.Errorf("%w: %s/%s", ErrUnknownVerb, d.Name, name)
	}
	return v, nil
}

func verbs(vs ...Verb) map[string]Verb {
	m := make(map[string]Verb, len(vs))
	for _, v := range vs {
		m[v.Name] = v
	}
	return m
}

// validID rejects ids that would resolve to a different backend path than
// the record they name.
func validID(id string) bool {
	return strings.TrimSpace(id) != "" && id != "." && id != ".." && !strings.ContainsAny(id, "/\\")
}

// itemPath returns base/id, or base/id/suffix when suffix is set.
func itemPath(base, id, suffix string) string {
	p := base + "/" + url.PathEscape(id)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func countLabel(ids []string, one, many string) string {
	if len(ids) == 1 {
		return "this " + one
	}
	return fmt.Sprintf("%d %s", len(ids), many)
}
