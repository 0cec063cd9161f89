package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moneyflow/internal/auth"
	"moneyflow/internal/core"
	"moneyflow/internal/notify"
)

// Coordinator sends requests and owns the single-flight refresh state.
// Only the coordinator mutates isRefreshing and the pending queue; only
// the gate holds the token pair.
type Coordinator struct {
	base   string
	http   Doer
	gate   *auth.Gate
	center *notify.Center

	mu           sync.Mutex
	isRefreshing bool
	pending      []*pendingCall
}

// pendingCall is a request parked while a refresh is in flight. Its
// result arrives on done once the refresh settles.
type pendingCall struct {
	ctx  context.Context
	req  Request
	done chan callResult
}

type callResult struct {
	data json.RawMessage
	err  error
}

func NewCoordinator(base string, doer Doer, gate *auth.Gate, center *notify.Center) *Coordinator {
	return &Coordinator{
		base:   base,
		http:   doer,
		gate:   gate,
		center: center,
	}
}

// Do performs one backend call. An authorization failure on a regular
// call enters the refresh protocol: the first failure triggers the
// refresh, later failures queue behind it, and after the refresh settles
// the queue replays in the order the calls failed. A token whose exp
// claim has already passed enters the same protocol without the doomed
// round trip.
func (c *Coordinator) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	var data json.RawMessage
	var err error
	if !req.NoAuth && c.tokenKnownExpired() {
		err = fmt.Errorf("%s %s: access token expired: %w", req.Method, req.Path, core.ErrAuthExpired)
	} else {
		data, err = c.send(ctx, req)
	}
	if err == nil || req.NoAuth || !errors.Is(err, core.ErrAuthExpired) {
		return data, err
	}

	c.mu.Lock()
	if c.isRefreshing {
		call := &pendingCall{ctx: ctx, req: req, done: make(chan callResult, 1)}
		c.pending = append(c.pending, call)
		c.mu.Unlock()
		select {
		case res := <-call.done:
			return res.data, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.isRefreshing = true
	c.mu.Unlock()

	refreshErr := c.refresh(ctx)

	c.mu.Lock()
	queue := c.pending
	c.pending = nil
	c.isRefreshing = false
	c.mu.Unlock()

	if refreshErr != nil {
		// Reject the whole queue in order, tear down the session, and
		// surface the expiry to the triggering caller.
		for _, call := range queue {
			call.done <- callResult{err: fmt.Errorf("session expired during %s %s: %w",
				call.req.Method, call.req.Path, core.ErrSessionExpired)}
		}
		c.gate.Clear(ctx)
		c.center.Error("Your session has expired, please sign in again")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, core.ErrSessionExpired)
	}

	// Replay the queue in failure order with the new token, then retry
	// the call that triggered the refresh.
	for _, call := range queue {
		data, err := c.send(call.ctx, call.req)
		call.done <- callResult{data: data, err: err}
	}
	return c.send(ctx, req)
}

// tokenKnownExpired reports whether the access token carries an exp claim
// already in the past. Opaque tokens and tokens without claims are left
// for the backend to judge; without a refresh token there is nothing to
// refresh with, so the request goes out as-is.
func (c *Coordinator) tokenKnownExpired() bool {
	creds := c.gate.Credentials()
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return false
	}
	exp, err := auth.TokenExpiry(creds.AccessToken)
	if err != nil {
		return false
	}
	return exp.Before(time.Now())
}

// send performs a single request attempt with the current token.
func (c *Coordinator) send(ctx context.Context, req Request) (json.RawMessage, error) {
	var body *bytes.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	u := c.base + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", req.Method, req.Path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := c.gate.Credentials().AccessToken; token != "" && !req.NoAuth {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	env, err := readEnvelope(resp)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return env.Data, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// refresh exchanges the refresh token for a new pair and installs it.
func (c *Coordinator) refresh(ctx context.Context) error {
	refreshToken := c.gate.Credentials().RefreshToken
	if refreshToken == "" {
		return fmt.Errorf("no refresh token: %w", core.ErrSessionExpired)
	}

	data, err := c.send(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   refreshRequest{RefreshToken: refreshToken},
		NoAuth: true,
	})
	if err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}
	var tokens tokenResponse
	if err := json.Unmarshal(data, &tokens); err != nil {
		return fmt.Errorf("decoding refresh response: %w", err)
	}
	if tokens.AccessToken == "" {
		return fmt.Errorf("refresh returned no token: %w", core.ErrSessionExpired)
	}
	c.gate.SetTokens(ctx, auth.Credentials{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
	slog.InfoContext(ctx, "Session refreshed")
	return nil
}
