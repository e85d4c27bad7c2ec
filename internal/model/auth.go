// Package model defines the standardized request and response types passed
// to the authentication collaborator.
package model

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// RequestBody is either absent or a parsed JSON value.
type RequestBody struct {
	value   any
	present bool
}

// NoBody returns an absent body.
func NoBody() RequestBody {
	return RequestBody{}
}

// JSONBody wraps a parsed JSON value. A nil value is still a present body
// and serializes as "null".
func JSONBody(v any) RequestBody {
	return RequestBody{value: v, present: true}
}

// Present reports whether a body was parsed.
func (b RequestBody) Present() bool {
	return b.present
}

// Marshal serializes the body as JSON text. An absent body yields nil.
func (b RequestBody) Marshal() ([]byte, error) {
	if !b.present {
		return nil, nil
	}
	data, err := json.Marshal(b.value)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return data, nil
}

// Request is the standardized request handed to the collaborator.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte // JSON text; nil when the inbound request had no body
}

// HasBody reports whether the request carries a body.
func (r *Request) HasBody() bool {
	return r.Body != nil
}

// Response is the standardized response returned by the collaborator.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser // nil when the response declares no body
}

// HasBody reports whether the response declares a body.
func (r *Response) HasBody() bool {
	return r.Body != nil
}

// Text reads the whole body and closes it.
func (r *Response) Text() (string, error) {
	if r.Body == nil {
		return "", nil
	}
	defer func() { _ = r.Body.Close() }()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(data), nil
}

// Close releases the body without reading it.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Reply is a fully buffered response, ready to be written to the client.
type Reply struct {
	Status int
	Header http.Header
	Body   []byte // nil means an empty body
}
