// Package middleware wraps ports.Handler with the cross-cutting behaviour
// every runtime shares.
package middleware

import (
	"context"

	"pgmirror/shared/application/ports"
)

// Middleware decorates a handler
type Middleware func(next ports.Handler) ports.Handler

// HandlerFunc adapts a function to ports.Handler
type HandlerFunc func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error)

func (f HandlerFunc) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	return f(ctx, req)
}

// Chain applies middlewares so the first one is outermost
func Chain(h ports.Handler, middlewares ...Middleware) ports.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func failure(message string) ports.RuntimeResponse {
	return ports.RuntimeResponse{Success: false, Error: message}
}
