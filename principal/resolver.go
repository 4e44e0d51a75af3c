// Package principal defines the external Principal Resolver collaborator.
//
// Principals are created and owned outside the ledger core: the engine only
// ever receives opaque principal identifiers. When a caller addresses a
// counterparty by human-readable handle, the handle is resolved through this
// interface by whatever identity service hosts the directory.
package principal

import (
	"context"
	"errors"
)

// ErrUnknownHandle is returned when a handle does not resolve to a principal.
var ErrUnknownHandle = errors.New("principal: unknown handle")

// Resolver resolves a human-readable handle to a principal identifier.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (string, error)
}

// ResolverFunc adapts a plain function to a Resolver.
type ResolverFunc func(ctx context.Context, handle string) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, handle string) (string, error) {
	return f(ctx, handle)
}

// StaticResolver resolves handles from a fixed map. Useful for tests and
// single-process deployments where the directory is known up front.
type StaticResolver map[string]string

// Resolve implements Resolver.
func (r StaticResolver) Resolve(_ context.Context, handle string) (string, error) {
	if principalID, ok := r[handle]; ok {
		return principalID, nil
	}
	return "", ErrUnknownHandle
}
