package ports

import "context"

// SecretStore holds backend API credentials referenced by registry entries.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
