package revocation

import "context"

// Registry is a concurrency-safe set of revoked token identities.
type Registry interface {
	// Revoke inserts jti. It reports false when jti is empty or already present.
	Revoke(ctx context.Context, jti string) (bool, error)
	// IsRevoked is a pure membership check.
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
}
