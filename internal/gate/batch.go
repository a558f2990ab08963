package gate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds parallel calls in RunBatch.
const DefaultBatchConcurrency = 4

// BatchResult tallies a batch mutation. Succeeded and Failed keep the order
// of the input ids.
type BatchResult struct {
	Succeeded []string
	Failed    []string
	Errors    map[string]error
}

// RunBatch calls fn once per id with at most limit calls in flight. Every id
// is attempted independently; a failure never stops the others.
func RunBatch(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, id string) error) BatchResult {
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = fn(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{Errors: map[string]error{}}
	for i, id := range ids {
		if errs[i] != nil {
			res.Failed = append(res.Failed, id)
			res.Errors[id] = errs[i]
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res
}

// Outcome reports the batch as separate success and failure notifications,
// e.g. "3 deleted successfully" and "2 failed to delete".
func (r BatchResult) Outcome(verb, past, infinitive string) Outcome {
	o := Outcome{Verb: verb, Succeeded: r.Succeeded, Failed: r.Failed, Notifications: []Notification{}}
	if n := len(r.Succeeded); n > 0 {
		o.Notifications = append(o.Notifications, Notification{
			Level:   LevelSuccess,
			Message: fmt.Sprintf("%d %s successfully", n, past),
		})
	}
	if n := len(r.Failed); n > 0 {
		o.Notifications = append(o.Notifications, Notification{
			Level:   LevelError,
			Message: fmt.Sprintf("%d failed to %s", n, infinitive),
		})
	}
	return o
}
