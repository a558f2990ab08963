package listview

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort returns a sorted copy of items ordered by the named column.
//
// Ascending order uses a stable sort; descending is the exact reverse of the
// ascending result, so flipping direction on the same column always yields
// the reversed sequence (equal keys included). Unknown columns leave the
// order unchanged.
func Sort[T any](items []T, spec *Spec[T], field string, dir Direction, tag language.Tag) []T {
	out := slices.Clone(items)
	sf, ok := spec.SortFields[field]
	if !ok {
		return out
	}
	slices.SortStableFunc(out, comparator(sf, tag))
	if dir == Desc {
		slices.Reverse(out)
	}
	return out
}

// comparator builds the ascending comparison for one column. A collator is
// not safe for concurrent use, so each Sort call gets its own.
func comparator[T any](sf SortField[T], tag language.Tag) func(a, b T) int {
	switch sf.Kind {
	case KindNumber:
		return func(a, b T) int { return cmp.Compare(sf.Number(a), sf.Number(b)) }
	case KindTime:
		return func(a, b T) int { return sf.Time(a).Compare(sf.Time(b)) }
	default:
		col := collate.New(tag)
		return func(a, b T) int { return col.CompareString(sf.String(a), sf.String(b)) }
	}
}
