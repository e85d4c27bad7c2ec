package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/metrics"
	"auth-gateway/internal/model"
	"auth-gateway/internal/service"
)

// RoutePrefix is the path prefix delegated to the auth collaborator.
const RoutePrefix = "/v1/auth"

// fallbackHost is used to build the absolute URL when the request has no Host.
const fallbackHost = "localhost"

// authFailureBody is the fixed payload sent when a request cannot be delegated.
var authFailureBody = []byte(`{"error":"Internal authentication error","code":"AUTH_FAILURE"}`)

// replyHopByHop are stripped from collaborator responses before writing.
var replyHopByHop = []string{"Connection", "Keep-Alive", "Transfer-Encoding", "Trailer", "Upgrade"}

// AuthHandler translates inbound requests into standardized requests,
// delegates them to the auth service, and writes the reply back.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAuthHandler creates an AuthHandler. The metrics parameter is optional.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		service: svc,
		logger:  logger.With("component", "auth_handler"),
		metrics: m,
	}
}

// Handle delegates the request to the auth collaborator. Every failure is
// answered with a 500 AUTH_FAILURE; the collaborator reply is buffered in
// full, so no status or header has been sent when a failure is reported.
func (h *AuthHandler) Handle(c echo.Context) error {
	req, err := newAuthRequest(c)
	if err != nil {
		return h.fail(c, metrics.StageTranslate, err)
	}

	reply, err := h.service.Authenticate(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, metrics.StageHandler, err)
	}

	return h.writeReply(c, reply)
}

func (h *AuthHandler) fail(c echo.Context, stage string, err error) error {
	h.logger.Error("Authentication error",
		"err", err,
		"stage", stage,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)
	if h.metrics != nil {
		h.metrics.AuthFailures.WithLabelValues(stage).Inc()
	}

	if c.Response().Committed {
		return nil
	}
	return c.JSONBlob(http.StatusInternalServerError, authFailureBody)
}

func (h *AuthHandler) writeReply(c echo.Context, reply *model.Reply) error {
	dst := c.Response().Header()
	for key, vals := range reply.Header {
		if len(vals) == 0 {
			continue
		}
		dst[http.CanonicalHeaderKey(key)] = append([]string(nil), vals...)
	}
	for _, name := range replyHopByHop {
		dst.Del(name)
	}

	if bodyAllowed(reply.Status) {
		dst.Set(echo.HeaderContentLength, strconv.Itoa(len(reply.Body)))
	} else {
		dst.Del(echo.HeaderContentLength)
	}

	c.Response().WriteHeader(reply.Status)
	if len(reply.Body) == 0 || !bodyAllowed(reply.Status) {
		return nil
	}

	// Status is already on the wire; a write failure here means the client went away.
	if _, err := c.Response().Write(reply.Body); err != nil {
		h.logger.Warn("writing auth response body",
			"err", err,
			"path", c.Request().URL.Path,
		)
	}
	return nil
}

// newAuthRequest reconstructs the inbound request as a standardized request.
func newAuthRequest(c echo.Context) (*model.Request, error) {
	r := c.Request()

	u, err := absoluteURL(c.Scheme(), r)
	if err != nil {
		return nil, err
	}

	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	data, err := body.Marshal()
	if err != nil {
		return nil, err
	}

	return &model.Request{
		Method: r.Method,
		URL:    u,
		Header: forwardHeaders(r),
		Body:   data,
	}, nil
}

func absoluteURL(scheme string, r *http.Request) (*url.URL, error) {
	host := r.Host
	if host == "" {
		host = fallbackHost
	}
	target := r.RequestURI
	if target == "" {
		target = r.URL.RequestURI()
	}
	if !strings.HasPrefix(target, "/") {
		// Absolute-form request targets carry their own authority.
		target = r.URL.RequestURI()
	}

	u, err := url.Parse(scheme + "://" + host + target)
	if err != nil {
		return nil, fmt.Errorf("build request URL: %w", err)
	}
	return u, nil
}

// forwardHeaders appends every non-empty inbound header value. Go keeps the
// Host header outside r.Header, so it is added back explicitly.
func forwardHeaders(r *http.Request) http.Header {
	dst := make(http.Header, len(r.Header)+1)
	if r.Host != "" {
		dst.Add("Host", r.Host)
	}
	for key, vals := range r.Header {
		for _, v := range vals {
			if v == "" {
				continue
			}
			dst.Add(key, v)
		}
	}
	return dst
}

// readBody parses the inbound body. JSON payloads are decoded; any other
// payload is kept as a string value, so it is re-serialized as a JSON string.
func readBody(r *http.Request) (model.RequestBody, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return model.NoBody(), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return model.NoBody(), fmt.Errorf("read request body: %w", err)
	}
	if len(data) == 0 {
		return model.NoBody(), nil
	}

	if !isJSON(r.Header.Get(echo.HeaderContentType)) {
		return model.JSONBody(string(data)), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return model.NoBody(), fmt.Errorf("decode request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.NoBody(), errors.New("decode request body: trailing data after JSON value")
	}
	return model.JSONBody(v), nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == echo.MIMEApplicationJSON || strings.HasSuffix(mediaType, "+json")
}

func bodyAllowed(status int) bool {
	return status != http.StatusNoContent && status != http.StatusNotModified
}
