package view

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"stockdash/internal/provider"
)

// Derive filters quotes by search and orders the result by s.
// The input slice is never modified.
func Derive(quotes []provider.Quote, search string, s Sort) []provider.Quote {
	out := Filter(quotes, search)
	SortQuotes(out, s)
	return out
}

// Filter returns a copy of the quotes whose symbol or name contains search,
// ignoring case. A blank search keeps every quote in its original order.
func Filter(quotes []provider.Quote, search string) []provider.Quote {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return slices.Clone(quotes)
	}
	out := make([]provider.Quote, 0, len(quotes))
	for _, r := range quotes {
		if strings.Contains(strings.ToLower(r.Symbol), q) || strings.Contains(strings.ToLower(r.Name.ValueOrZero()), q) {
			out = append(out, r)
		}
	}
	return out
}

// SortQuotes orders quotes in place. The sort is stable, so equal keys keep
// their relative order. Unavailable numbers compare as zero.
func SortQuotes(quotes []provider.Quote, s Sort) {
	sign := 1
	if s.Dir == Desc {
		sign = -1
	}

	var compare func(a, b provider.Quote) int
	switch s.Key {
	case KeyPrice:
		compare = func(a, b provider.Quote) int {
			return cmp.Compare(a.Price.ValueOrZero(), b.Price.ValueOrZero())
		}
	case KeyChangePercent:
		compare = func(a, b provider.Quote) int {
			return cmp.Compare(a.ChangesPercentage.ValueOrZero(), b.ChangesPercentage.ValueOrZero())
		}
	default:
		// A Collator keeps internal buffers and is not safe for concurrent use.
		c := collate.New(language.English)
		compare = func(a, b provider.Quote) int {
			return c.CompareString(a.Symbol, b.Symbol)
		}
	}

	slices.SortStableFunc(quotes, func(a, b provider.Quote) int {
		return sign * compare(a, b)
	})
}
