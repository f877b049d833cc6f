package discovery

import (
	"context"
	"fmt"
	"time"
)

// Snapshot holds the resolved upstream JSON-RPC endpoint.
type Snapshot struct {
	RPCURL     string
	ResolvedAt time.Time
}

// Resolver discovers the upstream endpoint advertised to the browser.
type Resolver interface {
	Resolve(ctx context.Context) (Snapshot, error)
}

// ResolveOnce runs resolver with a bounded context. The result is fixed for
// the lifetime of the process.
func ResolveOnce(ctx context.Context, resolver Resolver, timeout time.Duration) (Snapshot, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snapshot, err := resolver.Resolve(resolveCtx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolve rpc endpoint: %w", err)
	}
	if snapshot.RPCURL == "" {
		return Snapshot{}, fmt.Errorf("resolve rpc endpoint: empty url")
	}
	snapshot.ResolvedAt = time.Now().UTC()
	return snapshot, nil
}
