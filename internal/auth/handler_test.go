package auth

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"auth-gateway/internal/model"
)

func TestHandlerFunc(t *testing.T) {
	var got *model.Request
	var h Handler = HandlerFunc(func(_ context.Context, req *model.Request) (*model.Response, error) {
		got = req
		return &model.Response{Status: http.StatusNoContent, Header: http.Header{}}, nil
	})

	req := &model.Request{
		Method: http.MethodGet,
		URL:    &url.URL{Scheme: "http", Host: "example.com", Path: "/v1/auth/session"},
		Header: http.Header{},
	}
	resp, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got != req {
		t.Error("HandlerFunc did not receive the request it was called with")
	}
	if resp.Status != http.StatusNoContent {
		t.Errorf("Status = %d, want %d", resp.Status, http.StatusNoContent)
	}
}
