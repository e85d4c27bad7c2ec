// Package auth defines the calling convention into the authentication
// collaborator. The gateway never inspects auth semantics; it only hands a
// standardized request over and relays whatever comes back.
package auth

import (
	"context"

	"auth-gateway/internal/model"
)

// Handler processes a standardized request and returns a standardized response.
// Implementations must honor ctx cancellation. The caller owns the returned
// response and closes its body.
type Handler interface {
	Handle(ctx context.Context, req *model.Request) (*model.Response, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *model.Request) (*model.Response, error)

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req *model.Request) (*model.Response, error) {
	return f(ctx, req)
}
