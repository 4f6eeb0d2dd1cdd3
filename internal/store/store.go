// Package store hands a finished SearchResultSet from the pipeline to whatever
// renders it. A LevelDB database is the primary channel and a directory of JSON
// files is the fallback.
package store

import "errors"

// Keys used by the handoff.
const (
	KeyResults = "searchResults"
	KeyBackup  = "tempSearchResults"
)

var (
	// ErrNotFound is returned when a key holds no value.
	ErrNotFound = errors.New("store: not found")

	// ErrTooLarge is returned when a value exceeds the store's size limit.
	ErrTooLarge = errors.New("store: value too large")

	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("store: invalid key")
)

// KV is a string-keyed byte store.
type KV interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Close() error
}
