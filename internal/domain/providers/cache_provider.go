package providers

import "context"

// CacheProvider is the caching port for observational reads (queue views,
// estimates, shop info). The admission path never consults a cache.
type CacheProvider interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL given in seconds.
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}
