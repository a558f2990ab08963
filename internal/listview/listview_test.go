package listview

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

// ----- fixtures -----

type logRow struct {
	ID       string
	Kind     string
	User     string
	Comment  string
	Order    int
	Verified bool
	At       time.Time
}

func logSpec() *Spec[logRow] {
	return &Spec[logRow]{
		Name: "logs",
		ID:   func(r logRow) string { return r.ID },
		SearchFields: []func(logRow) string{
			func(r logRow) string { return r.Comment },
			func(r logRow) string { return r.User },
		},
		Categories: map[string]func(logRow) string{
			"kind": func(r logRow) string { return r.Kind },
		},
		Date: func(r logRow) time.Time { return r.At },
		Flags: map[string]func(logRow) bool{
			"verified": func(r logRow) bool { return r.Verified },
		},
		SortFields: map[string]SortField[logRow]{
			"user":  StringField(func(r logRow) string { return r.User }),
			"order": NumberField(func(r logRow) float64 { return float64(r.Order) }),
			"at":    TimeField(func(r logRow) time.Time { return r.At }),
		},
		DefaultSort: "at",
	}
}

func ids(rows []logRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func day(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tenLogs() []logRow {
	return []logRow{
		{ID: "1", Kind: "auth", User: "alice", Comment: "User LOGIN ok", At: day("2024-03-01T08:00:00Z")},
		{ID: "2", Kind: "order", User: "bob", Comment: "placed order", At: day("2024-03-01T09:00:00Z")},
		{ID: "3", Kind: "auth", User: "carol", Comment: "logout", At: day("2024-03-02T10:00:00Z")},
		{ID: "4", Kind: "auth", User: "dave", Comment: "failed Login attempt", At: day("2024-03-02T23:59:59Z"), Verified: true},
		{ID: "5", Kind: "catalog", User: "erin", Comment: "price change", At: day("2024-03-03T00:00:00Z")},
		{ID: "6", Kind: "order", User: "frank", Comment: "refund", At: day("2024-03-04T12:00:00Z"), Verified: true},
		{ID: "7", Kind: "auth", User: "grace", Comment: "password reset", At: day("2024-03-05T12:00:00Z")},
		{ID: "8", Kind: "order", User: "heidi", Comment: "cancelled", At: day("2024-03-06T12:00:00Z")},
		{ID: "9", Kind: "auth", User: "ivan", Comment: "login via SSO", At: day("2024-03-07T12:00:00Z"), Verified: true},
		{ID: "10", Kind: "catalog", User: "judy", Comment: "new product", At: day("2024-03-08T12:00:00Z")},
	}
}

// ----- Filter -----

func TestFilter_SearchIsCaseInsensitiveAndKeepsOrder(t *testing.T) {
	got := Filter(tenLogs(), logSpec(), Criteria{Search: "login"}, nil)
	if diff := cmp.Diff([]string{"1", "4", "9"}, ids(got)); diff != "" {
		t.Fatalf("search mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_SearchMatchesAnyField(t *testing.T) {
	got := Filter(tenLogs(), logSpec(), Criteria{Search: "GRACE"}, nil)
	if diff := cmp.Diff([]string{"7"}, ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFilter_NoCriteriaReturnsEverything(t *testing.T) {
	all := tenLogs()
	c := Criteria{
		Search:     "   ",
		Categories: map[string]string{"kind": All},
		Flags:      map[string]bool{"verified": false},
	}
	if !c.IsZero() {
		t.Fatalf("criteria should be inactive")
	}
	got := Filter(all, logSpec(), c, nil)
	if diff := cmp.Diff(ids(all), ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFilter_Conjunction(t *testing.T) {
	all := tenLogs()
	c := Criteria{
		Search:     "log",
		Categories: map[string]string{"kind": "auth"},
		DateFrom:   "2024-03-02",
		DateTo:     "2024-03-07",
		Flags:      map[string]bool{"verified": true},
	}
	got := Filter(all, logSpec(), c, nil)

	// Brute-force the same conjunction predicate by predicate.
	from, _ := StartOfDay(c.DateFrom, time.UTC)
	to, _ := EndOfDay(c.DateTo, time.UTC)
	var want []string
	for _, r := range all {
		search := containsFold(r.Comment, "log") || containsFold(r.User, "log")
		if search && r.Kind == "auth" && !r.At.Before(from) && !r.At.After(to) && r.Verified {
			want = append(want, r.ID)
		}
	}
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows (4 and 9), got %v", ids(got))
	}
}

func TestFilter_DateBoundsAreInclusiveWholeDays(t *testing.T) {
	got := Filter(tenLogs(), logSpec(), Criteria{DateFrom: "2024-03-02", DateTo: "2024-03-02"}, nil)
	if diff := cmp.Diff([]string{"3", "4"}, ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	onlyFrom := Filter(tenLogs(), logSpec(), Criteria{DateFrom: "2024-03-07"}, nil)
	if diff := cmp.Diff([]string{"9", "10"}, ids(onlyFrom)); diff != "" {
		t.Fatalf("from only (-want +got):\n%s", diff)
	}

	onlyTo := Filter(tenLogs(), logSpec(), Criteria{DateTo: "2024-03-01"}, nil)
	if diff := cmp.Diff([]string{"1", "2"}, ids(onlyTo)); diff != "" {
		t.Fatalf("to only (-want +got):\n%s", diff)
	}
}

func TestEndOfDay(t *testing.T) {
	end, ok := EndOfDay("2024-02-29", time.UTC)
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2024, 2, 29, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !end.Equal(want) {
		t.Fatalf("EndOfDay = %v; want %v", end, want)
	}
	if _, ok := EndOfDay("29/02/2024", time.UTC); ok {
		t.Fatalf("malformed day must be rejected")
	}
}

func TestFilter_UnknownKeysIgnored(t *testing.T) {
	got := Filter(tenLogs(), logSpec(), Criteria{
		Categories: map[string]string{"nope": "x"},
		Flags:      map[string]bool{"nope": true},
	}, nil)
	if len(got) != 10 {
		t.Fatalf("unknown keys must not constrain; got %d", len(got))
	}
}

func containsFold(s, sub string) bool {
	return len(Filter([]logRow{{Comment: s}}, &Spec[logRow]{
		SearchFields: []func(logRow) string{func(r logRow) string { return r.Comment }},
	}, Criteria{Search: sub}, nil)) == 1
}

// ----- Sort -----

func TestSort_NumberAscendingThenToggle(t *testing.T) {
	rows := []logRow{{ID: "a", Order: 3}, {ID: "b", Order: 1}, {ID: "c", Order: 2}}
	asc := Sort(rows, logSpec(), "order", Asc, language.English)
	if diff := cmp.Diff([]string{"b", "c", "a"}, ids(asc)); diff != "" {
		t.Fatalf("asc (-want +got):\n%s", diff)
	}
	desc := Sort(rows, logSpec(), "order", Desc, language.English)
	if diff := cmp.Diff([]string{"a", "c", "b"}, ids(desc)); diff != "" {
		t.Fatalf("desc (-want +got):\n%s", diff)
	}
	// input untouched
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids(rows)); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestSort_DescIsExactReverseEvenWithTies(t *testing.T) {
	rows := []logRow{
		{ID: "a", Order: 2}, {ID: "b", Order: 1}, {ID: "c", Order: 2},
		{ID: "d", Order: 1}, {ID: "e", Order: 3},
	}
	asc := ids(Sort(rows, logSpec(), "order", Asc, language.English))
	desc := ids(Sort(rows, logSpec(), "order", Desc, language.English))
	for i := range asc {
		if asc[i] != desc[len(desc)-1-i] {
			t.Fatalf("desc is not the reverse of asc: asc=%v desc=%v", asc, desc)
		}
	}
}

func TestSort_StringsUseCollation(t *testing.T) {
	rows := []logRow{{ID: "1", User: "Zoe"}, {ID: "2", User: "émile"}, {ID: "3", User: "adam"}, {ID: "4", User: "Bob"}}
	got := Sort(rows, logSpec(), "user", Asc, language.English)
	// Raw code-point order would put "Bob" and "Zoe" first and "émile" last.
	if diff := cmp.Diff([]string{"3", "4", "2", "1"}, ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestSort_Time(t *testing.T) {
	got := Sort(tenLogs()[:3], logSpec(), "at", Desc, language.English)
	if diff := cmp.Diff([]string{"3", "2", "1"}, ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestSort_UnknownFieldKeepsOrder(t *testing.T) {
	got := Sort(tenLogs(), logSpec(), "nope", Desc, language.English)
	if diff := cmp.Diff(ids(tenLogs()), ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

// ----- Paginate -----

func numbered(n int) []logRow {
	out := make([]logRow, n)
	for i := range out {
		out[i] = logRow{ID: strconv.Itoa(i + 1), Order: i + 1}
	}
	return out
}

func TestPaginate_LastPartialPage(t *testing.T) {
	rows := numbered(61)
	page, meta := Paginate(rows, 3, 25)
	if meta.TotalPages != 3 {
		t.Fatalf("TotalPages = %d; want 3", meta.TotalPages)
	}
	if len(page) != 11 || page[0].ID != "51" || page[10].ID != "61" {
		t.Fatalf("page 3 = %v; want 51..61", ids(page))
	}
	if meta.HasNext || !meta.HasPrev {
		t.Fatalf("unexpected flags: %+v", meta)
	}
}

func TestPaginate_Coverage(t *testing.T) {
	for _, n := range []int{0, 1, 24, 25, 26, 61, 100} {
		for _, size := range []int{1, 7, 25} {
			rows := numbered(n)
			var got []string
			pages := TotalPages(n, size)
			for p := 1; p <= pages; p++ {
				chunk, _ := Paginate(rows, p, size)
				got = append(got, ids(chunk)...)
			}
			if diff := cmp.Diff(ids(rows), got, cmpEmpty()); diff != "" {
				t.Fatalf("n=%d size=%d (-want +got):\n%s", n, size, diff)
			}
		}
	}
}

func cmpEmpty() cmp.Option {
	return cmp.Transformer("nilEmpty", func(s []string) []string {
		if len(s) == 0 {
			return []string{}
		}
		return s
	})
}

func TestPaginate_EmptyHasOnePage(t *testing.T) {
	page, meta := Paginate([]logRow{}, 4, 10)
	if len(page) != 0 || meta.TotalPages != 1 || meta.Page != 1 {
		t.Fatalf("got %d rows, meta=%+v", len(page), meta)
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct{ page, total, want int }{
		{0, 3, 1}, {-5, 3, 1}, {2, 3, 2}, {9, 3, 3}, {1, 0, 1},
	}
	for _, tc := range cases {
		if got := ClampPage(tc.page, tc.total); got != tc.want {
			t.Errorf("ClampPage(%d,%d) = %d; want %d", tc.page, tc.total, got, tc.want)
		}
	}
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		cur, total, width int
		want              []int
	}{
		{1, 10, 5, []int{1, 2, 3, 4, 5}},
		{2, 10, 5, []int{1, 2, 3, 4, 5}},
		{5, 10, 5, []int{3, 4, 5, 6, 7}},
		{9, 10, 5, []int{6, 7, 8, 9, 10}},
		{10, 10, 5, []int{6, 7, 8, 9, 10}},
		{2, 3, 5, []int{1, 2, 3}},
		{1, 1, 5, []int{1}},
	}
	for _, tc := range cases {
		got := PageWindow(tc.cur, tc.total, tc.width)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("PageWindow(%d,%d,%d) (-want +got):\n%s", tc.cur, tc.total, tc.width, diff)
		}
	}
}

// ----- Reduce -----

func TestReduce_PageSizeChangeResetsPage(t *testing.T) {
	s := ViewState{Page: 3, PageSize: 10}
	next, err := Reduce(s, Event{Type: EventSetPageSize, PageSize: 50}, 5, logSpec())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if next.Page != 1 || next.PageSize != 50 {
		t.Fatalf("got page=%d size=%d", next.Page, next.PageSize)
	}
	if _, err := Reduce(s, Event{Type: EventSetPageSize, PageSize: 0}, 5, logSpec()); err != ErrInvalidPageSize {
		t.Fatalf("want ErrInvalidPageSize, got %v", err)
	}
}

func TestReduce_FilterChangesResetPage(t *testing.T) {
	events := []Event{
		{Type: EventSetSearch, Value: "x"},
		{Type: EventSetCategory, Key: "kind", Value: "auth"},
		{Type: EventSetDateRange, From: "2024-01-01"},
		{Type: EventSetFlag, Key: "verified", On: true},
		{Type: EventResetFilters},
	}
	for _, ev := range events {
		next, err := Reduce(ViewState{Page: 4, PageSize: 10}, ev, 9, logSpec())
		if err != nil {
			t.Fatalf("%s: %v", ev.Type, err)
		}
		if next.Page != 1 {
			t.Errorf("%s: page = %d; want 1", ev.Type, next.Page)
		}
		if !ev.ChangesFilters() {
			t.Errorf("%s should report a filter change", ev.Type)
		}
	}
}

func TestReduce_NavigationClamps(t *testing.T) {
	spec := logSpec()
	s := ViewState{Page: 3, PageSize: 10}
	cases := []struct {
		ev   Event
		want int
	}{
		{Event{Type: EventFirstPage}, 1},
		{Event{Type: EventPrevPage}, 2},
		{Event{Type: EventNextPage}, 3},
		{Event{Type: EventLastPage}, 3},
		{Event{Type: EventJumpToPage, Page: 99}, 3},
		{Event{Type: EventJumpToPage, Page: -1}, 1},
	}
	for _, tc := range cases {
		next, err := Reduce(s, tc.ev, 3, spec)
		if err != nil {
			t.Fatalf("%s: %v", tc.ev.Type, err)
		}
		if next.Page != tc.want {
			t.Errorf("%s: page = %d; want %d", tc.ev.Type, next.Page, tc.want)
		}
	}
}

func TestReduce_SortToggleAndDefaults(t *testing.T) {
	spec := logSpec()
	s := NewViewState(spec, 25)
	if s.SortField != "at" || s.SortDir != Desc {
		t.Fatalf("initial sort = %s %s; want at desc", s.SortField, s.SortDir)
	}

	s, _ = Reduce(s, Event{Type: EventSortBy, Key: "at"}, 1, spec)
	if s.SortDir != Asc {
		t.Fatalf("same field should toggle to asc, got %s", s.SortDir)
	}
	s, _ = Reduce(s, Event{Type: EventSortBy, Key: "order"}, 1, spec)
	if s.SortField != "order" || s.SortDir != Asc {
		t.Fatalf("new non-time field should default to asc, got %s %s", s.SortField, s.SortDir)
	}
	s, _ = Reduce(s, Event{Type: EventSortBy, Key: "at"}, 1, spec)
	if s.SortDir != Desc {
		t.Fatalf("time field should default to desc, got %s", s.SortDir)
	}
	if _, err := Reduce(s, Event{Type: EventSortBy, Key: "nope"}, 1, spec); err != ErrUnknownSortField {
		t.Fatalf("want ErrUnknownSortField, got %v", err)
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := ViewState{Criteria: Criteria{Categories: map[string]string{"kind": "auth"}}, Selection: []string{"1"}}
	_, _ = Reduce(s, Event{Type: EventSetCategory, Key: "kind", Value: "order"}, 1, logSpec())
	_, _ = Reduce(s, Event{Type: EventSelect, IDs: []string{"2"}}, 1, logSpec())
	if s.Categories["kind"] != "auth" || len(s.Selection) != 1 {
		t.Fatalf("input state mutated: %+v", s)
	}
}

func TestReduce_Selection(t *testing.T) {
	spec := logSpec()
	s, _ := Reduce(ViewState{}, Event{Type: EventSelect, IDs: []string{"a", "b", "a"}}, 1, spec)
	s, _ = Reduce(s, Event{Type: EventSelect, IDs: []string{"c"}}, 1, spec)
	s, _ = Reduce(s, Event{Type: EventDeselect, IDs: []string{"b"}}, 1, spec)
	if diff := cmp.Diff([]string{"a", "c"}, s.Selection); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	s, _ = Reduce(s, Event{Type: EventSelectAll, IDs: []string{"x", "y", "x"}}, 1, spec)
	if diff := cmp.Diff([]string{"x", "y"}, s.Selection); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	s, _ = Reduce(s, Event{Type: EventClearSelection}, 1, spec)
	if s.Selection != nil {
		t.Fatalf("selection should be cleared")
	}
}

func TestReduce_DateRangeValidation(t *testing.T) {
	spec := logSpec()
	if _, err := Reduce(ViewState{}, Event{Type: EventSetDateRange, From: "03/01/2024"}, 1, spec); err != ErrInvalidDate {
		t.Fatalf("want ErrInvalidDate, got %v", err)
	}
	if _, err := Reduce(ViewState{}, Event{Type: EventSetDateRange, From: "2024-03-05", To: "2024-03-01"}, 1, spec); err != ErrInvalidRange {
		t.Fatalf("want ErrInvalidRange, got %v", err)
	}
	if _, err := Reduce(ViewState{}, Event{Type: "bogus"}, 1, spec); err != ErrUnknownEvent {
		t.Fatalf("want ErrUnknownEvent, got %v", err)
	}
}

// ----- Engine -----

func TestEngine_ApplyClampsAndCountsFiltered(t *testing.T) {
	e := NewEngine(logSpec())
	st := e.NewState(2)
	st.Page = 9
	st.Search = "login"

	res, next := e.Apply(tenLogs(), st)
	if res.Pagination.Total != 3 {
		t.Fatalf("total should count filtered rows, got %d", res.Pagination.Total)
	}
	if next.Page != 2 || res.Pagination.Page != 2 {
		t.Fatalf("page should clamp to 2, got state=%d meta=%d", next.Page, res.Pagination.Page)
	}
	// default sort: at desc → 9, 4, 1; page 2 of size 2 → [1]
	if diff := cmp.Diff([]string{"1"}, ids(res.Items)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, res.Window); diff != "" {
		t.Fatalf("window (-want +got):\n%s", diff)
	}
}

func TestEngine_DispatchNavigatesFilteredPages(t *testing.T) {
	e := NewEngine(logSpec(), WithWindow(3))
	st := e.NewState(3)

	res, st, err := e.Dispatch(tenLogs(), st, Event{Type: EventLastPage})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if st.Page != 4 || len(res.Items) != 1 {
		t.Fatalf("last page = %d with %d rows; want 4 with 1", st.Page, len(res.Items))
	}

	res, st, err = e.Dispatch(tenLogs(), st, Event{Type: EventSetCategory, Key: "kind", Value: "order"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if st.Page != 1 || res.Pagination.Total != 3 {
		t.Fatalf("after filter: page=%d total=%d", st.Page, res.Pagination.Total)
	}

	_, same, err := e.Dispatch(tenLogs(), st, Event{Type: EventSortBy, Key: "missing"})
	if err == nil || same.SortField != st.SortField {
		t.Fatalf("invalid event must leave state untouched, err=%v", err)
	}
}

func ExamplePageWindow() {
	fmt.Println(PageWindow(7, 8, 5))
	// Output: [4 5 6 7 8]
}
