// Package metadata is a small key/value store in the CLI's local database.
// It keeps the current session: tokens and the signed-in user.
package metadata

import "context"

// Repository returns (nil, nil) from Get when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
