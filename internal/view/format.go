package view

import (
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"stockdash/internal/provider"
)

// Placeholder is shown for any value the provider did not supply.
const Placeholder = "—"

// Row is one table row, ready for display.
type Row struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  string `json:"price"`
	Change string `json:"change"`
	// Trend is 1 for a gain, -1 for a loss and 0 otherwise.
	Trend int `json:"trend"`
}

func Rows(quotes []provider.Quote) []Row {
	out := make([]Row, len(quotes))
	for i, q := range quotes {
		name := q.Name.ValueOrZero()
		if name == "" {
			name = Placeholder
		}
		out[i] = Row{
			Symbol: q.Symbol,
			Name:   name,
			Price:  FormatPrice(q.Price),
			Change: FormatPercent(q.ChangesPercentage),
			Trend:  trend(q.ChangesPercentage),
		}
	}
	return out
}

// FormatPrice renders $150.00, or the placeholder.
func FormatPrice(v null.Float) string {
	if !v.Valid {
		return Placeholder
	}
	return "$" + decimal.NewFromFloat(v.Float64).StringFixed(2)
}

// FormatPercent renders -1.20%, or the placeholder.
func FormatPercent(v null.Float) string {
	if !v.Valid {
		return Placeholder
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(2) + "%"
}

// SortIndicator returns the arrow for the column of key, empty when the
// column is not the active sort.
func SortIndicator(s Sort, key SortKey) string {
	if s.Key != key {
		return ""
	}
	if s.Dir == Desc {
		return "▼"
	}
	return "▲"
}

// trend follows the rounded value shown by FormatPercent, so 0.00% is never coloured.
func trend(v null.Float) int {
	if !v.Valid {
		return 0
	}
	return decimal.NewFromFloat(v.Float64).Round(2).Sign()
}
