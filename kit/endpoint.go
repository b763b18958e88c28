// CLAUDE:SUMMARY Endpoint and middleware primitives shared by every transport surface.
// Package kit holds the transport-agnostic plumbing: endpoints, middleware
// chaining, request-scoped context values, and the MCP tool adapter.
package kit

import "context"

// Endpoint is a single transport-agnostic operation. Every tool exposed over
// MCP (and the CLI internally) is an Endpoint behind an adapter.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
