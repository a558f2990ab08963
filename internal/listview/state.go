package listview

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"time"
)

// ViewState is the complete, serializable UI state of one list page.
type ViewState struct {
	Criteria
	SortField string    `json:"sort_field"`
	SortDir   Direction `json:"sort_dir"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
	Selection []string  `json:"selection,omitempty"`
}

// NewViewState returns the initial state for a page: no filters, the page's
// default column in its default direction, page 1.
func NewViewState[T any](spec *Spec[T], pageSize int) ViewState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	st := ViewState{Page: 1, PageSize: pageSize, SortField: spec.DefaultSort}
	if dir, ok := spec.DefaultDirection(spec.DefaultSort); ok {
		st.SortDir = dir
	} else {
		st.SortField = ""
		st.SortDir = Asc
	}
	return st
}

// EventType names a view-state transition.
type EventType string

const (
	EventSetSearch      EventType = "set_search"
	EventSetCategory    EventType = "set_category"
	EventSetDateRange   EventType = "set_date_range"
	EventSetFlag        EventType = "set_flag"
	EventResetFilters   EventType = "reset_filters"
	EventSortBy         EventType = "sort_by"
	EventFirstPage      EventType = "first_page"
	EventPrevPage       EventType = "prev_page"
	EventNextPage       EventType = "next_page"
	EventLastPage       EventType = "last_page"
	EventJumpToPage     EventType = "jump_to_page"
	EventSetPageSize    EventType = "set_page_size"
	EventSelect         EventType = "select"
	EventDeselect       EventType = "deselect"
	EventSelectAll      EventType = "select_all"
	EventClearSelection EventType = "clear_selection"
)

// Event is one user input applied to a ViewState.
type Event struct {
	Type     EventType `json:"type"`
	Key      string    `json:"key,omitempty"`
	Value    string    `json:"value,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	On       bool      `json:"on,omitempty"`
	Page     int       `json:"page,omitempty"`
	PageSize int       `json:"page_size,omitempty"`
	IDs      []string  `json:"ids,omitempty"`
}

// Reducer errors.
var (
	ErrUnknownEvent     = errors.New("unknown view event")
	ErrUnknownSortField = errors.New("unknown sort field")
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD")
	ErrInvalidRange     = errors.New("date_from must not be after date_to")
	ErrInvalidPageSize  = errors.New("page size out of range")
	ErrMissingKey       = errors.New("event key is required")
)

// Reduce applies ev to s and returns the next state. It never mutates s.
//
// totalPages is the page count of the current filtered collection; page
// navigation clamps into [1, totalPages]. Any filter change and any page-size
// change land on page 1.
func Reduce(s ViewState, ev Event, totalPages int, sorts SortDefaults) (ViewState, error) {
	next := clone(s)
	if next.PageSize <= 0 {
		next.PageSize = DefaultPageSize
	}

	switch ev.Type {
	case EventSetSearch:
		next.Search = ev.Value
		next.Page = 1

	case EventSetCategory:
		if strings.TrimSpace(ev.Key) == "" {
			return s, ErrMissingKey
		}
		if next.Categories == nil {
			next.Categories = map[string]string{}
		}
		if ev.Value == "" || ev.Value == All {
			delete(next.Categories, ev.Key)
		} else {
			next.Categories[ev.Key] = ev.Value
		}
		next.Page = 1

	case EventSetDateRange:
		if err := validateRange(ev.From, ev.To); err != nil {
			return s, err
		}
		next.DateFrom, next.DateTo = ev.From, ev.To
		next.Page = 1

	case EventSetFlag:
		if strings.TrimSpace(ev.Key) == "" {
			return s, ErrMissingKey
		}
		if next.Flags == nil {
			next.Flags = map[string]bool{}
		}
		if ev.On {
			next.Flags[ev.Key] = true
		} else {
			delete(next.Flags, ev.Key)
		}
		next.Page = 1

	case EventResetFilters:
		next.Criteria = Criteria{}
		next.Page = 1

	case EventSortBy:
		def, ok := sorts.DefaultDirection(ev.Key)
		if !ok {
			return s, ErrUnknownSortField
		}
		if next.SortField == ev.Key {
			next.SortDir = next.SortDir.Toggle()
		} else {
			next.SortField = ev.Key
			next.SortDir = def
		}

	case EventFirstPage:
		next.Page = 1
	case EventPrevPage:
		next.Page = ClampPage(next.Page-1, totalPages)
	case EventNextPage:
		next.Page = ClampPage(next.Page+1, totalPages)
	case EventLastPage:
		next.Page = ClampPage(totalPages, totalPages)
	case EventJumpToPage:
		next.Page = ClampPage(ev.Page, totalPages)

	case EventSetPageSize:
		if ev.PageSize < 1 || ev.PageSize > MaxPageSize {
			return s, ErrInvalidPageSize
		}
		next.PageSize = ev.PageSize
		next.Page = 1

	case EventSelect:
		for _, id := range ev.IDs {
			if !slices.Contains(next.Selection, id) {
				next.Selection = append(next.Selection, id)
			}
		}
	case EventDeselect:
		next.Selection = slices.DeleteFunc(next.Selection, func(id string) bool {
			return slices.Contains(ev.IDs, id)
		})
	case EventSelectAll:
		next.Selection = nil
		for _, id := range ev.IDs {
			if !slices.Contains(next.Selection, id) {
				next.Selection = append(next.Selection, id)
			}
		}
	case EventClearSelection:
		next.Selection = nil

	default:
		return s, ErrUnknownEvent
	}
	return next, nil
}

// ChangesFilters reports whether ev alters the filtered collection.
func (ev Event) ChangesFilters() bool {
	switch ev.Type {
	case EventSetSearch, EventSetCategory, EventSetDateRange, EventSetFlag, EventResetFilters:
		return true
	}
	return false
}

func validateRange(from, to string) error {
	var f, t time.Time
	var err error
	if from != "" {
		if f, err = time.Parse(DateLayout, from); err != nil {
			return ErrInvalidDate
		}
	}
	if to != "" {
		if t, err = time.Parse(DateLayout, to); err != nil {
			return ErrInvalidDate
		}
	}
	if from != "" && to != "" && f.After(t) {
		return ErrInvalidRange
	}
	return nil
}

// clone deep-copies the maps and slices of s.
func clone(s ViewState) ViewState {
	s.Categories = maps.Clone(s.Categories)
	s.Flags = maps.Clone(s.Flags)
	s.Selection = slices.Clone(s.Selection)
	return s
}
