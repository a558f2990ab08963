// Package services – ListService
//
// This file implements ListService, the generic list page engine bound to one
// resource. Each user gets a session holding the fetched collection (guarded
// by a fetch.Controller), the current view state, and a debouncer that
// settles search input. View state is persisted per (user, resource) so it
// survives restarts.
//
// Mutating actions go through the confirmation gate: OpenGate records a
// descriptor, ConfirmGate consumes it and only then calls the backend, then
// publishes an audit event and refetches the list.
//
// Observability: public methods are OpenTelemetry-instrumented; confirmed
// outcomes are counted in Prometheus.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-backoffice/internal/audit"
	"github.com/tbourn/go-backoffice/internal/backend"
	"github.com/tbourn/go-backoffice/internal/debounce"
	"github.com/tbourn/go-backoffice/internal/export"
	"github.com/tbourn/go-backoffice/internal/fetch"
	"github.com/tbourn/go-backoffice/internal/gate"
	"github.com/tbourn/go-backoffice/internal/listview"
	"github.com/tbourn/go-backoffice/internal/repo"
	"github.com/tbourn/go-backoffice/internal/resources"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventApplySearch fires a pending debounced search immediately.
const EventApplySearch listview.EventType = "apply_search"

var gateOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gate_outcomes_total",
		Help: "Confirmed admin actions by resource, verb and result.",
	},
	[]string{"resource", "verb", "result"},
)

func init() {
	prometheus.MustRegister(gateOutcomes)
}

// Page is one rendered list page.
type Page struct {
	Resource      string              `json:"resource"`
	Items         any                 `json:"items"`
	Pagination    listview.Pagination `json:"pagination"`
	Window        []int               `json:"window"`
	State         listview.ViewState  `json:"state"`
	TotalCount    *int                `json:"totalCount,omitempty"`
	SearchPending bool                `json:"searchPending,omitempty"`
	LoadedAt      time.Time           `json:"loadedAt"`
}

// ListOptions tunes a List call.
type ListOptions struct {
	// Refresh forces a refetch even when a collection is loaded.
	Refresh bool
	// Page and PageSize override the stored state when positive.
	Page     int
	PageSize int
	// Params override the resource's server-side pre-filters. A change
	// refetches.
	Params url.Values
}

// GateRequest opens a confirmation.
type GateRequest struct {
	Verb    string          `json:"verb"`
	IDs     []string        `json:"ids"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConfirmResult is the response of a confirmed action.
type ConfirmResult struct {
	Outcome gate.Outcome `json:"outcome"`
	Page    *Page        `json:"page,omitempty"`
}

// Settings are the list defaults shared by every resource.
type Settings struct {
	PageSize   int
	Debounce   time.Duration
	BatchLimit int
	SessionTTL time.Duration
	// IdempotencyTTL bounds how long a confirmation can be replayed.
	IdempotencyTTL time.Duration
}

// Deps are the collaborators shared by every resource.
type Deps struct {
	Client   *backend.Client
	DB       *gorm.DB // nil keeps view state and replays in memory only
	Gate     *gate.Gate
	Audit    audit.Sink
	Log      zerolog.Logger
	Settings Settings
}

// Resource is the type-erased view of a ListService used by the handlers
// and the AdminService registry.
type Resource interface {
	Name() string
	List(ctx context.Context, userID string, opts ListOptions) (*Page, error)
	Dispatch(ctx context.Context, userID string, ev listview.Event) (*Page, error)
	Export(ctx context.Context, userID string, w io.Writer) (int, error)
	Validate(req GateRequest) error
	OpenGate(ctx context.Context, userID string, req GateRequest) (gate.Descriptor, error)
	PendingGate(ctx context.Context, userID string) (gate.Descriptor, error)
	CloseGate(ctx context.Context, userID string) error
	ConfirmGate(ctx context.Context, userID, idemKey string, in gate.ConfirmInput) (*ConfirmResult, bool, error)
	Sweep(now time.Time) int
	Close()
}

type session[T any] struct {
	mu         sync.Mutex
	fetch      *fetch.Controller[T]
	search     *debounce.Debouncer[string]
	state      listview.ViewState
	hasState   bool
	params     url.Values
	totalCount *int
	lastUsed   time.Time
}

// ListService runs the list engine for one resource definition.
type ListService[T any] struct {
	def    *resources.Definition[T]
	engine *listview.Engine[T]
	deps   Deps

	mu       sync.Mutex
	sessions map[string]*session[T]
}

var _ Resource = (*ListService[int])(nil)

// NewListService binds def to engine and the shared dependencies.
func NewListService[T any](def *resources.Definition[T], engine *listview.Engine[T], deps Deps) *ListService[T] {
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.Gate == nil {
		deps.Gate = gate.New(gate.NewMemoryStore())
	}
	if deps.Settings.BatchLimit <= 0 {
		deps.Settings.BatchLimit = gate.DefaultBatchConcurrency
	}
	return &ListService[T]{
		def:      def,
		engine:   engine,
		deps:     deps,
		sessions: map[string]*session[T]{},
	}
}

// Name returns the resource name.
func (s *ListService[T]) Name() string { return s.def.Name }

func (s *ListService[T]) tracer() trace.Tracer { return otel.Tracer("services/ListService") }

func (s *ListService[T]) key(userID string) gate.Key {
	return gate.Key{UserID: userID, Resource: s.def.Name}
}

// session returns the session of userID, creating it on first use.
func (s *ListService[T]) session(userID string) *session[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.lastUsed = time.Now()
		return sess
	}
	sess := &session[T]{fetch: fetch.New[T](), lastUsed: time.Now()}
	sess.search = debounce.New(s.deps.Settings.Debounce, func(term string) {
		s.settleSearch(userID, sess, term)
	})
	s.sessions[userID] = sess
	return sess
}

// List fetches the collection when needed and renders the stored view state.
func (s *ListService[T]) List(ctx context.Context, userID string, opts ListOptions) (*Page, error) {
	ctx, span := s.tracer().Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("resource", s.def.Name),
			attribute.String("user.id", userID),
			attribute.Bool("refresh", opts.Refresh),
		),
	)
	defer span.End()

	sess := s.session(userID)
	s.ensureState(ctx, userID, sess)

	params := s.def.Query(opts.Params)
	sess.mu.Lock()
	changed := !maps.EqualFunc(sess.params, params, slices.Equal[[]string])
	sess.mu.Unlock()
	if loaded, _ := sess.fetch.Loaded(); opts.Refresh || changed || !loaded {
		if err := s.load(ctx, userID, sess, params); err != nil {
			return nil, err
		}
	}

	sess.mu.Lock()
	st := sess.state
	items := sess.fetch.Items()
	var err error
	if opts.PageSize > 0 && opts.PageSize != st.PageSize {
		_, st, err = s.engine.Dispatch(items, st, listview.Event{Type: listview.EventSetPageSize, PageSize: opts.PageSize})
		if err != nil {
			sess.mu.Unlock()
			return nil, err
		}
	}
	if opts.Page > 0 {
		st.Page = opts.Page
	}
	page := s.renderLocked(sess, items, st)
	sess.mu.Unlock()

	s.saveState(ctx, userID, page.State)
	return page, nil
}

// Dispatch applies a view event. Search input is debounced: the effective
// term only changes once the burst settles (or on EventApplySearch), and the
// page returned meanwhile reports SearchPending.
func (s *ListService[T]) Dispatch(ctx context.Context, userID string, ev listview.Event) (*Page, error) {
	ctx, span := s.tracer().Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("resource", s.def.Name),
			attribute.String("user.id", userID),
			attribute.String("event", string(ev.Type)),
		),
	)
	defer span.End()

	sess := s.session(userID)
	s.ensureState(ctx, userID, sess)
	if loaded, _ := sess.fetch.Loaded(); !loaded {
		if err := s.load(ctx, userID, sess, s.def.Query(nil)); err != nil {
			return nil, err
		}
	}

	// The debouncer may fire synchronously and takes the session lock itself.
	switch ev.Type {
	case listview.EventSetSearch:
		sess.search.Push(ev.Value)
		return s.current(ctx, userID, sess), nil
	case EventApplySearch:
		sess.search.Flush()
		return s.current(ctx, userID, sess), nil
	case listview.EventResetFilters:
		if sess.search.Pending() {
			sess.search.Push("")
		}
	}

	sess.mu.Lock()
	items := sess.fetch.Items()
	if ev.Type == listview.EventSelectAll && len(ev.IDs) == 0 {
		for _, it := range s.engine.Filtered(items, sess.state) {
			ev.IDs = append(ev.IDs, s.def.Spec.ID(it))
		}
	}
	_, next, err := s.engine.Dispatch(items, sess.state, ev)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	page := s.renderLocked(sess, items, next)
	sess.mu.Unlock()

	s.saveState(ctx, userID, page.State)
	return page, nil
}

// settleSearch applies a settled search term to the session.
func (s *ListService[T]) settleSearch(userID string, sess *session[T], term string) {
	sess.mu.Lock()
	_, next, err := s.engine.Dispatch(sess.fetch.Items(), sess.state, listview.Event{Type: listview.EventSetSearch, Value: term})
	if err == nil {
		sess.state = next
	}
	sess.mu.Unlock()
	if err != nil {
		s.deps.Log.Warn().Err(err).Str("resource", s.def.Name).Msg("apply search")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.saveState(ctx, userID, next)
}

// current renders the session state without changing it.
func (s *ListService[T]) current(ctx context.Context, userID string, sess *session[T]) *Page {
	sess.mu.Lock()
	page := s.renderLocked(sess, sess.fetch.Items(), sess.state)
	sess.mu.Unlock()
	s.saveState(ctx, userID, page.State)
	return page
}

// renderLocked applies st to items, stores the normalized state and builds
// the page. sess.mu must be held.
func (s *ListService[T]) renderLocked(sess *session[T], items []T, st listview.ViewState) *Page {
	res, st := s.engine.Apply(items, st)
	sess.state = st
	_, at := sess.fetch.Loaded()
	return &Page{
		Resource:      s.def.Name,
		Items:         res.Items,
		Pagination:    res.Pagination,
		Window:        res.Window,
		State:         st,
		TotalCount:    sess.totalCount,
		SearchPending: sess.search.Pending(),
		LoadedAt:      at.UTC(),
	}
}

// load fetches the full collection. A load superseded by a newer one
// returns fetch.ErrStale and leaves the session untouched.
func (s *ListService[T]) load(ctx context.Context, userID string, sess *session[T], params url.Values) error {
	var total *int
	_, err := sess.fetch.Load(backend.WithUser(ctx, userID), func(ctx context.Context) ([]T, error) {
		items, n, err := backend.ListAll[T](ctx, s.deps.Client, s.def.Path, params)
		total = n
		return items, err
	})
	if err != nil {
		if !errors.Is(err, fetch.ErrStale) {
			s.deps.Log.Warn().Err(err).Str("resource", s.def.Name).Str("user_id", userID).Msg("fetch list")
		}
		return err
	}
	sess.mu.Lock()
	sess.params = params
	sess.totalCount = total
	sess.mu.Unlock()
	return nil
}

// ensureState loads the persisted view state once per session.
func (s *ListService[T]) ensureState(ctx context.Context, userID string, sess *session[T]) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.hasState {
		return
	}
	sess.hasState = true
	sess.state = s.engine.NewState(s.deps.Settings.PageSize)
	if s.deps.DB == nil {
		return
	}
	st, err := repo.GetViewState(ctx, s.deps.DB, userID, s.def.Name)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.deps.Log.Warn().Err(err).Str("resource", s.def.Name).Msg("load view state")
		}
		return
	}
	// A stored sort column that no longer exists falls back to the default.
	if _, ok := s.def.Spec.DefaultDirection(st.SortField); !ok {
		def := sess.state
		st.SortField, st.SortDir = def.SortField, def.SortDir
	}
	if st.PageSize <= 0 || st.PageSize > listview.MaxPageSize {
		st.PageSize = sess.state.PageSize
	}
	sess.state = st
}

func (s *ListService[T]) saveState(ctx context.Context, userID string, st listview.ViewState) {
	if s.deps.DB == nil {
		return
	}
	if err := repo.SaveViewState(ctx, s.deps.DB, userID, s.def.Name, st); err != nil {
		s.deps.Log.Warn().Err(err).Str("resource", s.def.Name).Msg("save view state")
	}
}

// Export writes the filtered and sorted collection (every page) as CSV and
// returns the number of data rows.
func (s *ListService[T]) Export(ctx context.Context, userID string, w io.Writer) (int, error) {
	ctx, span := s.tracer().Start(ctx, "Export",
		trace.WithAttributes(attribute.String("resource", s.def.Name), attribute.String("user.id", userID)),
	)
	defer span.End()

	sess := s.session(userID)
	s.ensureState(ctx, userID, sess)
	if loaded, _ := sess.fetch.Loaded(); !loaded {
		if err := s.load(ctx, userID, sess, s.def.Query(nil)); err != nil {
			return 0, err
		}
	}
	sess.mu.Lock()
	rows := s.engine.Filtered(sess.fetch.Items(), sess.state)
	sess.mu.Unlock()

	if err := export.WriteCSV(w, s.def.Columns, rows); err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return len(rows), nil
}

// Validate runs the form validation of req.Verb without opening anything.
func (s *ListService[T]) Validate(req GateRequest) error {
	verb, err := s.def.Verb(req.Verb)
	if err != nil {
		return err
	}
	if verb.Validate == nil {
		return nil
	}
	return verb.Validate(req.Payload)
}

// OpenGate records a confirmation for req, replacing any open one. A batch
// verb without ids targets the current selection. Validation failures are
// returned before anything is recorded.
func (s *ListService[T]) OpenGate(ctx context.Context, userID string, req GateRequest) (gate.Descriptor, error) {
	ctx, span := s.tracer().Start(ctx, "OpenGate",
		trace.WithAttributes(
			attribute.String("resource", s.def.Name),
			attribute.String("verb", req.Verb),
			attribute.Int("ids", len(req.IDs)),
		),
	)
	defer span.End()

	verb, err := s.def.Verb(req.Verb)
	if err != nil {
		return gate.Descriptor{}, err
	}
	ids := req.IDs
	if len(ids) == 0 && verb.Target == resources.TargetMany {
		sess := s.session(userID)
		s.ensureState(ctx, userID, sess)
		sess.mu.Lock()
		ids = append([]string(nil), sess.state.Selection...)
		sess.mu.Unlock()
	}
	d, err := verb.Describe(ids, req.Payload)
	if err != nil {
		return gate.Descriptor{}, err
	}
	return s.deps.Gate.Open(ctx, s.key(userID), d)
}

// PendingGate returns the open confirmation of userID.
func (s *ListService[T]) PendingGate(ctx context.Context, userID string) (gate.Descriptor, error) {
	return s.deps.Gate.Pending(ctx, s.key(userID))
}

// CloseGate discards the open confirmation without side effects.
func (s *ListService[T]) CloseGate(ctx context.Context, userID string) error {
	return s.deps.Gate.Close(ctx, s.key(userID))
}

// ConfirmGate runs the open confirmation. When idemKey is set and a result
// was already recorded for it, that result is returned with replayed=true
// and nothing runs. After an action with at least one success the selection
// is cleared and the list refetched.
func (s *ListService[T]) ConfirmGate(ctx context.Context, userID, idemKey string, in gate.ConfirmInput) (*ConfirmResult, bool, error) {
	ctx, span := s.tracer().Start(ctx, "ConfirmGate",
		trace.WithAttributes(
			attribute.String("resource", s.def.Name),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if idemKey != "" && s.deps.DB != nil {
		if rec, err := repo.GetIdempotency(ctx, s.deps.DB, userID, s.def.Name, idemKey, time.Now().UTC()); err == nil {
			var out ConfirmResult
			if err := json.Unmarshal(rec.Body, &out); err == nil {
				return &out, true, nil
			}
		}
	}

	exec := func(ctx context.Context, d gate.Descriptor, in gate.ConfirmInput) gate.Outcome {
		verb, err := s.def.Verb(d.Verb)
		if err != nil {
			return gate.Failure(d.Verb, err.Error(), d.TargetIDs)
		}
		return verb.Execute(backend.WithUser(ctx, userID), s.deps.Client, d, in, s.deps.Settings.BatchLimit)
	}
	outcome, d, err := s.deps.Gate.Confirm(ctx, s.key(userID), in, exec)
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.String("verb", d.Verb), attribute.Int("failed", len(outcome.Failed)))

	s.record(ctx, userID, d, in, outcome)

	res := &ConfirmResult{Outcome: outcome}
	if outcome.Changed() {
		sess := s.session(userID)
		sess.mu.Lock()
		sess.state.Selection = nil
		sess.mu.Unlock()
		page, err := s.List(ctx, userID, ListOptions{Refresh: true})
		if err != nil {
			s.deps.Log.Warn().Err(err).Str("resource", s.def.Name).Msg("refetch after action")
		} else {
			res.Page = page
		}
	}

	if idemKey != "" && s.deps.DB != nil {
		if body, err := json.Marshal(res); err == nil {
			ttl := s.deps.Settings.IdempotencyTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			if _, err := repo.CreateIdempotency(ctx, s.deps.DB, userID, s.def.Name, idemKey, 200, body, ttl); err != nil && !errors.Is(err, repo.ErrDuplicate) {
				s.deps.Log.Warn().Err(err).Msg("store idempotency record")
			}
		}
	}
	return res, false, nil
}

// record counts the outcome and publishes the audit event.
func (s *ListService[T]) record(ctx context.Context, userID string, d gate.Descriptor, in gate.ConfirmInput, o gate.Outcome) {
	if n := len(o.Succeeded); n > 0 {
		gateOutcomes.WithLabelValues(s.def.Name, d.Verb, "success").Add(float64(n))
	}
	if n := len(o.Failed); n > 0 {
		gateOutcomes.WithLabelValues(s.def.Name, d.Verb, "failure").Add(float64(n))
	}
	if len(o.Succeeded) == 0 && len(o.Failed) == 0 {
		if o.OK() {
			gateOutcomes.WithLabelValues(s.def.Name, d.Verb, "success").Inc()
		} else {
			gateOutcomes.WithLabelValues(s.def.Name, d.Verb, "failure").Inc()
		}
	}

	_ = s.deps.Audit.Publish(ctx, audit.Event{
		Resource:  s.def.Name,
		Verb:      d.Verb,
		Actor:     userID,
		IDs:       d.TargetIDs,
		Succeeded: len(o.Succeeded),
		Failed:    len(o.Failed),
		Reason:    in.Reason,
		At:        time.Now().UTC(),
	})
}

// Sweep drops sessions idle since before now-SessionTTL and returns how many
// were dropped. A zero TTL keeps every session.
func (s *ListService[T]) Sweep(now time.Time) int {
	ttl := s.deps.Settings.SessionTTL
	if ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > ttl {
			sess.search.Stop()
			sess.fetch.Cancel()
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Close stops every session.
func (s *ListService[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.search.Stop()
		sess.fetch.Cancel()
		delete(s.sessions, id)
	}
}
