// Package ports defines the interfaces the session, locale and API layers
// depend on. Implementations live in internal/adapters and internal/transport.
package ports

import (
	"context"

	"github.com/taskup/taskup-client/internal/transport"
)

// KVStore is durable string storage for the session token, cached profile
// and locale. A missing key is reported with ok == false, not an error.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// APIDoer performs one API call. *transport.Client satisfies it.
type APIDoer interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

var _ APIDoer = (*transport.Client)(nil)
