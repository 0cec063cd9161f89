// Package client speaks the backend's envelope protocol and coordinates
// token refresh: when calls fail with an authorization error, exactly one
// refresh runs while the rest queue up and replay in order afterwards.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"moneyflow/internal/core"
)

// Envelope is the backend's uniform response shape. Code zero means
// success; 401 triggers the refresh protocol; anything else is a plain
// application error carried in Message.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Request describes one backend call. NoAuth marks the calls that are
// themselves part of the auth handshake; they never trigger a refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	NoAuth bool
}

// APIError is a nonzero envelope code other than 401.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.Code, e.Message)
}

// Doer is the transport seam; tests substitute a scripted one.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPDoer(timeout time.Duration) Doer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Get builds a GET request.
func Get(path string, query url.Values) Request {
	return Request{Method: http.MethodGet, Path: path, Query: query}
}

// Post builds a POST request carrying a JSON body.
func Post(path string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, Body: body}
}

// Put builds a PUT request carrying a JSON body.
func Put(path string, body any) Request {
	return Request{Method: http.MethodPut, Path: path, Body: body}
}

// Delete builds a DELETE request.
func Delete(path string) Request {
	return Request{Method: http.MethodDelete, Path: path}
}

// Call performs a request and decodes the envelope data into T.
func Call[T any](ctx context.Context, c *Coordinator, req Request) (T, error) {
	var out T
	data, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding %s %s response: %w", req.Method, req.Path, err)
	}
	return out, nil
}

func readEnvelope(resp *http.Response) (Envelope, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Envelope{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return Envelope{}, fmt.Errorf("backend rejected token: %w", core.ErrAuthExpired)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope (status %d): %w", resp.StatusCode, err)
	}
	switch env.Code {
	case 0:
		return env, nil
	case http.StatusUnauthorized:
		return Envelope{}, fmt.Errorf("backend rejected token: %w", core.ErrAuthExpired)
	default:
		return Envelope{}, &APIError{Code: env.Code, Message: env.Message}
	}
}
