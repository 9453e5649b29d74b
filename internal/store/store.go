package store

import "context"

// KV is the persistence collaborator: a small synchronous string key-value
// store, the server-side analogue of browser local storage. Only two logical
// keys exist today (theme preference and the favorites array) so the
// interface stays deliberately minimal.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backing resources.
	Close() error
}
