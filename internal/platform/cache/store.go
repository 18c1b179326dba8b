package cache

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidKey = errors.New("invalid cache key")

// Store is a flat key/value blob store. Implementations do not expire, retry
// or buffer; every error is returned to the caller.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, payload []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ValidateKey rejects keys that could escape a backend's namespace.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
