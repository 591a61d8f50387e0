package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedTrade  = errors.New("malformed trade event")
	ErrUnknownInterval = errors.New("unknown interval")
)

// FetchError wraps a failed historical backfill request. It terminates the
// subscriber session that triggered it; the candle store is left unchanged.
type FetchError struct {
	Symbol   string
	Interval string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Symbol, e.Interval, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
