package ports

import (
	"context"
	"time"
)

// TokenRevoker keeps a list of access tokens invalidated by logout until they
// expire on their own.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
