package listview

import (
	"strings"
	"time"
)

// All is the categorical sentinel meaning "no constraint".
const All = "all"

// DateLayout is the wire format of date-range bounds.
const DateLayout = "2006-01-02"

// Criteria holds every active filter of a view. The zero value matches all
// records.
type Criteria struct {
	Search     string            `json:"search,omitempty"`
	Categories map[string]string `json:"categories,omitempty"`
	DateFrom   string            `json:"date_from,omitempty"`
	DateTo     string            `json:"date_to,omitempty"`
	Flags      map[string]bool   `json:"flags,omitempty"`
}

// predicate reports whether a record passes one filter dimension.
type predicate[T any] func(T) bool

// Filter returns the records of items that satisfy every active criterion,
// in their original relative order. Dates are interpreted in loc (UTC when
// nil). Unknown category or flag keys are ignored, as are malformed dates.
func Filter[T any](items []T, spec *Spec[T], c Criteria, loc *time.Location) []T {
	preds := compile(spec, c, loc)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if matchAll(it, preds) {
			out = append(out, it)
		}
	}
	return out
}

func matchAll[T any](it T, preds []predicate[T]) bool {
	for _, p := range preds {
		if !p(it) {
			return false
		}
	}
	return true
}

func compile[T any](spec *Spec[T], c Criteria, loc *time.Location) []predicate[T] {
	if loc == nil {
		loc = time.UTC
	}
	var preds []predicate[T]

	if term := strings.ToLower(strings.TrimSpace(c.Search)); term != "" && len(spec.SearchFields) > 0 {
		fields := spec.SearchFields
		preds = append(preds, func(it T) bool {
			for _, f := range fields {
				if strings.Contains(strings.ToLower(f(it)), term) {
					return true
				}
			}
			return false
		})
	}

	for key, want := range c.Categories {
		if want == "" || want == All {
			continue
		}
		get, ok := spec.Categories[key]
		if !ok {
			continue
		}
		want := want
		preds = append(preds, func(it T) bool { return get(it) == want })
	}

	if spec.Date != nil {
		if from, ok := StartOfDay(c.DateFrom, loc); ok {
			get := spec.Date
			preds = append(preds, func(it T) bool { return !get(it).Before(from) })
		}
		if to, ok := EndOfDay(c.DateTo, loc); ok {
			get := spec.Date
			preds = append(preds, func(it T) bool { return !get(it).After(to) })
		}
	}

	for key, on := range c.Flags {
		if !on {
			continue
		}
		get, ok := spec.Flags[key]
		if !ok {
			continue
		}
		preds = append(preds, predicate[T](get))
	}
	return preds
}

// StartOfDay parses a DateLayout day and returns 00:00:00.000 of it in loc.
func StartOfDay(day string, loc *time.Location) (time.Time, bool) {
	day = strings.TrimSpace(day)
	if day == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, day, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EndOfDay parses a DateLayout day and returns 23:59:59.999 of it in loc.
func EndOfDay(day string, loc *time.Location) (time.Time, bool) {
	start, ok := StartOfDay(day, loc)
	if !ok {
		return time.Time{}, false
	}
	return start.AddDate(0, 0, 1).Add(-time.Millisecond), true
}

// IsZero reports whether no criterion is active.
func (c Criteria) IsZero() bool {
	if strings.TrimSpace(c.Search) != "" || c.DateFrom != "" || c.DateTo != "" {
		return false
	}
	for _, v := range c.Categories {
		if v != "" && v != All {
			return false
		}
	}
	for _, on := range c.Flags {
		if on {
			return false
		}
	}
	return true
}
