package provider

import (
	"errors"
	"fmt"
	"net/url"
)

// FetchError is returned when a provider request fails: a non-2xx status,
// a transport failure or a body that cannot be decoded.
type FetchError struct {
	Op         string // "quote" or "history"
	Symbol     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	prefix := e.Op
	if e.Symbol != "" {
		prefix += " " + e.Symbol
	}
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: HTTP %d: %v", prefix, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", prefix, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return prefix + ": fetch failed"
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError wraps err in a FetchError unless it already is one.
func AsFetchError(op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Op: op, Symbol: symbol, Err: err}
}

// StripURL replaces a *url.Error with its cause. The request URL carries the
// API key as a query parameter and must not reach state, logs or responses.
func StripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s request: %w", ue.Op, ue.Err)
	}
	return err
}
