package view

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSortKey is returned by ParseSortKey for names outside the known keys.
var ErrUnknownSortKey = errors.New("unknown sort key")

type SortKey string

const (
	KeySymbol        SortKey = "symbol"
	KeyPrice         SortKey = "price"
	KeyChangePercent SortKey = "changePercent"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is the active sort setting of the table.
type Sort struct {
	Key SortKey   `json:"key"`
	Dir Direction `json:"dir"`
}

// DefaultSort orders by symbol, ascending.
func DefaultSort() Sort { return Sort{Key: KeySymbol, Dir: Asc} }

// Toggle returns the setting after the user picks key: the active key flips
// direction, any other key becomes active in ascending order.
func (s Sort) Toggle(key SortKey) Sort {
	if s.Key == key {
		if s.Dir == Asc {
			return Sort{Key: key, Dir: Desc}
		}
		return Sort{Key: key, Dir: Asc}
	}
	return Sort{Key: key, Dir: Asc}
}

// ParseSortKey accepts the key names case-insensitively, plus the
// "changesPercentage" field name as an alias of changePercent.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "symbol":
		return KeySymbol, nil
	case "price":
		return KeyPrice, nil
	case "changepercent", "changespercentage":
		return KeyChangePercent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

// ParseDirection accepts "asc" and "desc"; anything else is an error.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}
