// Package listview implements the list pipeline shared by every backoffice
// list page: an already-fetched collection is filtered, sorted and paginated
// under an explicit, serializable ViewState.
//
// The package is entity-agnostic. Each page describes its entity once with a
// Spec (field accessors for search, categorical filters, dates, flags and
// sortable columns) and drives an Engine with reducer-style Events.
//
// Everything here is pure and free of I/O; it is safe for concurrent use as
// long as callers do not mutate the slices they pass in.
package listview

import "time"

// FieldKind selects the comparator used for a sortable field.
type FieldKind int

const (
	// KindString compares with locale-aware collation.
	KindString FieldKind = iota
	// KindNumber compares numerically (a − b).
	KindNumber
	// KindTime compares timestamps.
	KindTime
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Valid reports whether d is asc or desc.
func (d Direction) Valid() bool { return d == Asc || d == Desc }

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// SortField describes one sortable column of T. Exactly one accessor matching
// Kind is expected to be set; use StringField, NumberField or TimeField.
type SortField[T any] struct {
	Kind   FieldKind
	String func(T) string
	Number func(T) float64
	Time   func(T) time.Time
}

// StringField declares a collated string column.
func StringField[T any](f func(T) string) SortField[T] {
	return SortField[T]{Kind: KindString, String: f}
}

// NumberField declares a numeric column.
func NumberField[T any](f func(T) float64) SortField[T] {
	return SortField[T]{Kind: KindNumber, Number: f}
}

// TimeField declares a timestamp column.
func TimeField[T any](f func(T) time.Time) SortField[T] {
	return SortField[T]{Kind: KindTime, Time: f}
}

// Spec describes how a list page reads its entity.
type Spec[T any] struct {
	// Name identifies the page (e.g. "activity-logs").
	Name string

	// ID returns the record's stable identifier.
	ID func(T) string

	// SearchFields are matched case-insensitively; a record matches the
	// search term when ANY field contains it.
	SearchFields []func(T) string

	// Categories maps a filter key to the field it compares for equality.
	Categories map[string]func(T) string

	// Date returns the timestamp used by the date-range filter. When nil the
	// date range is ignored.
	Date func(T) time.Time

	// Flags maps a boolean filter key to the record flag it requires.
	Flags map[string]func(T) bool

	// SortFields maps a column key to its comparator.
	SortFields map[string]SortField[T]

	// DefaultSort is the column used when a view has no sort field.
	DefaultSort string
}

// DefaultDirection returns the direction a column starts with when it becomes
// the active sort: descending for timestamps, ascending for everything else.
// The second result is false for unknown columns.
func (s *Spec[T]) DefaultDirection(field string) (Direction, bool) {
	sf, ok := s.SortFields[field]
	if !ok {
		return "", false
	}
	if sf.Kind == KindTime {
		return Desc, true
	}
	return Asc, true
}

// SortDefaults is the part of a Spec the reducer needs.
type SortDefaults interface {
	DefaultDirection(field string) (Direction, bool)
}
