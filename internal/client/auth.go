// Package client provides the HTTP client for the upstream authentication service.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"auth-gateway/internal/auth"
	"auth-gateway/internal/config"
	"auth-gateway/internal/metrics"
	"auth-gateway/internal/model"
)

// hopByHopHeaders are not forwarded to the auth service.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

var _ auth.Handler = (*AuthClient)(nil)

// AuthClient hands standardized requests to an auth service over HTTP.
type AuthClient struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewAuthClient creates an AuthClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewAuthClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*AuthClient, error) {
	base, err := url.Parse(cfg.Auth.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse auth base_url: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Auth.IdleConnections,
		MaxIdleConnsPerHost: cfg.Auth.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &AuthClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Auth.Timeout(),
			// Redirects issued by the auth service (OAuth flows) belong to the browser.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: base,
		logger:  logger.With("component", "auth_client"),
		metrics: m,
	}, nil
}

// Handle sends req to the auth service, keeping its path and query. The
// caller is responsible for closing the response body.
func (c *AuthClient) Handle(ctx context.Context, req *model.Request) (*model.Response, error) {
	if req.URL == nil {
		return nil, fmt.Errorf("build auth request: missing URL")
	}

	var body io.Reader
	if req.HasBody() {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.upstreamURL(req.URL), body)
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	httpReq.Header = c.upstreamHeader(req)

	return c.Do(httpReq)
}

// Do executes an HTTP request against the auth service and returns the raw response.
func (c *AuthClient) Do(req *http.Request) (*model.Response, error) {
	c.logger.Debug("auth request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via model.Response
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		}
		return nil, fmt.Errorf("auth request: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	}

	out := &model.Response{
		Status: resp.StatusCode,
		Header: resp.Header,
	}
	if resp.Body == http.NoBody || req.Method == http.MethodHead {
		_ = resp.Body.Close()
	} else {
		out.Body = resp.Body
	}
	return out, nil
}

func (c *AuthClient) upstreamURL(in *url.URL) string {
	u := *c.baseURL
	u.Path = singleJoin(c.baseURL.Path, in.Path)
	u.RawPath = ""
	u.RawQuery = in.RawQuery
	return u.String()
}

func (c *AuthClient) upstreamHeader(req *model.Request) http.Header {
	h := req.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
	h.Del("Host")
	h.Del("Content-Length")

	if req.URL.Host != "" {
		h.Set("X-Forwarded-Host", req.URL.Host)
	}
	if req.URL.Scheme != "" {
		h.Set("X-Forwarded-Proto", req.URL.Scheme)
	}
	if req.HasBody() && h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	return h
}

func singleJoin(a, b string) string {
	switch {
	case a == "" || a == "/":
		return b
	case b == "":
		return a
	}
	aSlash := a[len(a)-1] == '/'
	bSlash := b[0] == '/'
	switch {
	case aSlash && bSlash:
		return a + b[1:]
	case !aSlash && !bSlash:
		return a + "/" + b
	}
	return a + b
}
