package alphavantage

import (
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	"stockdash/internal/provider"
)

// parseNumber turns an API string into a float, invalid when blank or unparsable.
func parseNumber(s string) null.Float {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Float{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return provider.Float(v)
}
