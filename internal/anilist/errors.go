package anilist

import (
	"errors"
	"fmt"
)

// ErrNotFound means the provider resolved the query and had no media for it.
// Terminal: callers skip the id, they do not retry.
var ErrNotFound = errors.New("anilist: media not found")

// ErrRateLimited means the retry budget was spent entirely on 429 responses.
var ErrRateLimited = errors.New("anilist: rate limited")

// ProviderError wraps a network or payload failure talking to the provider.
type ProviderError struct {
	ID  int
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("anilist: fetch id %d: %v", e.ID, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
