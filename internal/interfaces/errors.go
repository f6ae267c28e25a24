package interfaces

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrKeyNotFound indicates a missing key in the KV store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrSourceUnavailable indicates an upstream source (feed,
	// article, quote, LLM) could not be reached. Callers skip and
	// continue, they do not abort the batch.
	ErrSourceUnavailable = errors.New("source unavailable")
)
