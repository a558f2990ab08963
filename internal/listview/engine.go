package listview

import (
	"time"

	"golang.org/x/text/language"
)

// Option configures an Engine.
type Option func(*config)

type config struct {
	tag    language.Tag
	loc    *time.Location
	window int
}

func defaultConfig() config {
	return config{
		tag:    language.English,
		loc:    time.UTC,
		window: DefaultWindow,
	}
}

// WithLanguage sets the collation used for string columns.
func WithLanguage(tag language.Tag) Option {
	return func(c *config) { c.tag = tag }
}

// WithLocation sets the time zone in which date-range days are interpreted.
func WithLocation(loc *time.Location) Option {
	return func(c *config) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithWindow sets the width of the visible page-number window.
func WithWindow(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.window = n
		}
	}
}

// Result is one rendered page of a list.
type Result[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
	Window     []int      `json:"window"`
}

// Engine runs Filter → Sort → Paginate for one Spec.
type Engine[T any] struct {
	spec *Spec[T]
	cfg  config
}

// NewEngine binds an engine to spec.
func NewEngine[T any](spec *Spec[T], opts ...Option) *Engine[T] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Engine[T]{spec: spec, cfg: cfg}
}

// Spec returns the bound spec.
func (e *Engine[T]) Spec() *Spec[T] { return e.spec }

// NewState returns the initial view state for this engine's page.
func (e *Engine[T]) NewState(pageSize int) ViewState { return NewViewState(e.spec, pageSize) }

// Filtered returns the filtered and sorted collection (every page).
func (e *Engine[T]) Filtered(items []T, st ViewState) []T {
	filtered := Filter(items, e.spec, st.Criteria, e.cfg.loc)
	return Sort(filtered, e.spec, st.SortField, st.SortDir, e.cfg.tag)
}

// Apply renders st over items. The returned state has its page clamped into
// the valid range of the filtered collection; callers should persist it.
func (e *Engine[T]) Apply(items []T, st ViewState) (Result[T], ViewState) {
	rows := e.Filtered(items, st)
	page, meta := Paginate(rows, st.Page, st.PageSize)

	st = clone(st)
	st.Page = meta.Page
	st.PageSize = meta.PageSize

	if page == nil {
		page = []T{}
	}
	return Result[T]{
		Items:      page,
		Pagination: meta,
		Window:     PageWindow(meta.Page, meta.TotalPages, e.cfg.window),
	}, st
}

// Dispatch reduces ev against st, using the page count of the current
// filtered collection for navigation, then renders the new state.
func (e *Engine[T]) Dispatch(items []T, st ViewState, ev Event) (Result[T], ViewState, error) {
	total := len(Filter(items, e.spec, st.Criteria, e.cfg.loc))
	next, err := Reduce(st, ev, TotalPages(total, st.PageSize), e.spec)
	if err != nil {
		return Result[T]{}, st, err
	}
	res, next := e.Apply(items, next)
	return res, next, nil
}
