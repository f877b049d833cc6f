package discovery

import (
	"context"
	"fmt"
	"strings"
)

// StaticResolver keeps the operator supplied RPC URL. Any non-empty value is
// advertised unchanged, including relative paths served by a fronting proxy.
type StaticResolver struct {
	rpcURL string
}

func NewStaticResolver(rpcURL string) (*StaticResolver, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	return &StaticResolver{rpcURL: rpcURL}, nil
}

func (r *StaticResolver) Resolve(_ context.Context) (Snapshot, error) {
	return Snapshot{RPCURL: r.rpcURL}, nil
}
