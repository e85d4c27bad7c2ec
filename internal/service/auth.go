// Package service delegates standardized requests to the auth collaborator.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"auth-gateway/internal/auth"
	"auth-gateway/internal/config"
	"auth-gateway/internal/model"
)

// ErrNoResponse is returned when the collaborator returns neither a response nor an error.
var ErrNoResponse = errors.New("auth handler returned no response")

// AuthService calls the auth collaborator and buffers its answer.
type AuthService struct {
	handler auth.Handler
	timeout time.Duration
	logger  *slog.Logger
}

// NewAuthService creates an AuthService. A zero timeout disables the deadline.
func NewAuthService(h auth.Handler, cfg *config.Config, logger *slog.Logger) *AuthService {
	return &AuthService{
		handler: h,
		timeout: cfg.Auth.Timeout(),
		logger:  logger.With("component", "auth_service"),
	}
}

// Authenticate hands req to the collaborator exactly once and reads the
// returned response completely before returning it. Nothing is written to
// the client here, so a failure at any point leaves the caller free to send
// its own error response.
func (s *AuthService) Authenticate(ctx context.Context, req *model.Request) (*model.Reply, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Debug("delegating request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	resp, err := s.handler.Handle(ctx, req)
	if err != nil {
		if resp != nil {
			_ = resp.Close()
		}
		return nil, fmt.Errorf("auth handler: %w", err)
	}
	if resp == nil {
		return nil, ErrNoResponse
	}
	// 1xx codes are informational in net/http and would be followed by an
	// implicit 200, so they cannot stand in for a final reply.
	if resp.Status < 200 || resp.Status > 999 {
		_ = resp.Close()
		return nil, fmt.Errorf("auth handler: invalid status code %d", resp.Status)
	}

	reply := &model.Reply{
		Status: resp.Status,
		Header: resp.Header,
	}
	if resp.HasBody() {
		text, err := resp.Text()
		if err != nil {
			return nil, fmt.Errorf("auth handler: %w", err)
		}
		reply.Body = []byte(text)
	}
	if reply.Header == nil {
		reply.Header = make(http.Header)
	}
	return reply, nil
}
