package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"moneyflow/internal/auth"
	"moneyflow/internal/core"
	"moneyflow/internal/notify"
	"moneyflow/internal/storage"
)

// scriptDoer scripts the backend: calls with the old token fail with the
// envelope 401, calls with the refreshed token succeed, and the refresh
// call blocks until the test releases it.
type scriptDoer struct {
	mu             sync.Mutex
	calls          []string
	refreshStarted chan struct{}
	releaseRefresh chan struct{}
	refreshFails   bool
	refreshCount   int
}

func newScriptDoer() *scriptDoer {
	return &scriptDoer{
		refreshStarted: make(chan struct{}, 8),
		releaseRefresh: make(chan struct{}),
	}
}

func (d *scriptDoer) record(s string) {
	d.mu.Lock()
	d.calls = append(d.calls, s)
	d.mu.Unlock()
}

func (d *scriptDoer) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func envelopeResponse(code int, data string) *http.Response {
	body := fmt.Sprintf(`{"code":%d,"message":"","data":%s}`, code, data)
	if data == "" {
		body = fmt.Sprintf(`{"code":%d,"message":"scripted failure"}`, code)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func (d *scriptDoer) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Path == "/auth/refresh" {
		d.mu.Lock()
		d.refreshCount++
		d.mu.Unlock()
		d.refreshStarted <- struct{}{}
		<-d.releaseRefresh
		d.record("refresh")
		if d.refreshFails {
			return envelopeResponse(500, ""), nil
		}
		return envelopeResponse(0, `{"access_token":"new-at","refresh_token":"new-rt"}`), nil
	}

	token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	if token == "new-at" {
		d.record(req.URL.Path + ":retry")
		return envelopeResponse(0, `{"ok":true}`), nil
	}
	d.record(req.URL.Path + ":unauthorized")
	return envelopeResponse(401, ""), nil
}

func newTestCoordinator(d Doer) (*Coordinator, *auth.Gate) {
	gate := auth.NewGate(storage.NewMemoryStore())
	gate.SetSession(context.Background(), auth.Credentials{
		AccessToken:  "old-at",
		RefreshToken: "old-rt",
	}, auth.User{ID: "u1"})
	return NewCoordinator("http://backend", d, gate, notify.NewCenter()), gate
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (c *Coordinator) pendingLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func TestSingleFlightRefreshReplaysQueueInOrder(t *testing.T) {
	d := newScriptDoer()
	c, gate := newTestCoordinator(d)
	ctx := context.Background()

	results := make(map[string]error)
	var resultsMu sync.Mutex
	var wg sync.WaitGroup
	call := func(path string) {
		defer wg.Done()
		_, err := c.Do(ctx, Get(path, nil))
		resultsMu.Lock()
		results[path] = err
		resultsMu.Unlock()
	}

	// First call fails with 401 and becomes the refresher; it blocks in
	// the scripted refresh until released.
	wg.Add(1)
	go call("/a")
	<-d.refreshStarted

	// The next two fail while the refresh is in flight and queue up, in
	// this order.
	wg.Add(1)
	go call("/b")
	waitFor(t, "first queued call", func() bool { return c.pendingLen() == 1 })
	wg.Add(1)
	go call("/c")
	waitFor(t, "second queued call", func() bool { return c.pendingLen() == 2 })

	close(d.releaseRefresh)
	wg.Wait()

	for path, err := range results {
		if err != nil {
			t.Fatalf("call %s error = %v, want success after refresh", path, err)
		}
	}
	d.mu.Lock()
	refreshes := d.refreshCount
	d.mu.Unlock()
	if refreshes != 1 {
		t.Fatalf("refresh ran %d times, want exactly 1", refreshes)
	}

	// Queue replays FIFO with the new token, then the triggering call.
	calls := d.recorded()
	var replayed []string
	for _, call := range calls {
		if strings.HasSuffix(call, ":retry") {
			replayed = append(replayed, strings.TrimSuffix(call, ":retry"))
		}
	}
	want := []string{"/b", "/c", "/a"}
	if len(replayed) != len(want) {
		t.Fatalf("replayed = %v, want %v", replayed, want)
	}
	for i := range want {
		if replayed[i] != want[i] {
			t.Fatalf("replayed = %v, want %v", replayed, want)
		}
	}

	if gate.Credentials().AccessToken != "new-at" {
		t.Fatalf("access token = %q after refresh, want new-at", gate.Credentials().AccessToken)
	}
}

func expiredJWT(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestExpiredTokenRefreshesBeforeSending(t *testing.T) {
	d := newScriptDoer()
	c, gate := newTestCoordinator(d)
	ctx := context.Background()
	gate.SetTokens(ctx, auth.Credentials{AccessToken: expiredJWT(t), RefreshToken: "old-rt"})

	var data json.RawMessage
	var err error
	done := make(chan struct{})
	go func() {
		data, err = c.Do(ctx, Get("/a", nil))
		close(done)
	}()
	<-d.refreshStarted
	close(d.releaseRefresh)
	<-done

	if err != nil {
		t.Fatalf("Do() error = %v, want success after proactive refresh", err)
	}
	var got map[string]bool
	if err := json.Unmarshal(data, &got); err != nil || !got["ok"] {
		t.Fatalf("Do() data = %s", data)
	}
	d.mu.Lock()
	refreshes := d.refreshCount
	d.mu.Unlock()
	if refreshes != 1 {
		t.Fatalf("refresh ran %d times, want exactly 1", refreshes)
	}
	// The expired token must never reach the wire.
	for _, call := range d.recorded() {
		if strings.HasSuffix(call, ":unauthorized") {
			t.Fatalf("request %s was sent with the expired token", call)
		}
	}
	if gate.Credentials().AccessToken != "new-at" {
		t.Fatalf("access token = %q after refresh, want new-at", gate.Credentials().AccessToken)
	}
}

func TestFailedRefreshRejectsQueueAndClearsSession(t *testing.T) {
	d := newScriptDoer()
	d.refreshFails = true
	c, gate := newTestCoordinator(d)
	ctx := context.Background()

	errs := make(map[string]error)
	var errsMu sync.Mutex
	var wg sync.WaitGroup
	call := func(path string) {
		defer wg.Done()
		_, err := c.Do(ctx, Get(path, nil))
		errsMu.Lock()
		errs[path] = err
		errsMu.Unlock()
	}

	wg.Add(1)
	go call("/a")
	<-d.refreshStarted
	wg.Add(1)
	go call("/b")
	waitFor(t, "queued call", func() bool { return c.pendingLen() == 1 })

	close(d.releaseRefresh)
	wg.Wait()

	for path, err := range errs {
		if !errors.Is(err, core.ErrSessionExpired) {
			t.Fatalf("call %s error = %v, want ErrSessionExpired", path, err)
		}
	}
	if gate.IsAuthenticated() {
		t.Fatal("gate still authenticated after failed refresh")
	}
	// Queued calls are rejected, never retried.
	for _, call := range d.recorded() {
		if strings.HasSuffix(call, ":retry") {
			t.Fatalf("call %s was retried after a failed refresh", call)
		}
	}
}

func TestNoAuthCallNeverTriggersRefresh(t *testing.T) {
	d := newScriptDoer()
	c, _ := newTestCoordinator(d)

	req := Post("/auth/login", map[string]string{"username": "x"})
	req.NoAuth = true
	_, err := c.Do(context.Background(), req)
	if !errors.Is(err, core.ErrAuthExpired) {
		t.Fatalf("Do() error = %v, want the raw ErrAuthExpired", err)
	}
	d.mu.Lock()
	refreshes := d.refreshCount
	d.mu.Unlock()
	if refreshes != 0 {
		t.Fatalf("refresh ran %d times for a NoAuth call, want 0", refreshes)
	}
}

func TestDoSuccessPassthrough(t *testing.T) {
	d := newScriptDoer()
	c, gate := newTestCoordinator(d)
	gate.SetTokens(context.Background(), auth.Credentials{AccessToken: "new-at", RefreshToken: "r"})

	data, err := c.Do(context.Background(), Get("/accounts", nil))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var got map[string]bool
	if err := json.Unmarshal(data, &got); err != nil || !got["ok"] {
		t.Fatalf("Do() data = %s", data)
	}
}

type staticDoer struct {
	resp *http.Response
}

func (d staticDoer) Do(*http.Request) (*http.Response, error) { return d.resp, nil }

func TestDoApplicationError(t *testing.T) {
	c, _ := newTestCoordinator(staticDoer{resp: envelopeResponse(422, "")})

	_, err := c.Do(context.Background(), Get("/accounts", nil))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Do() error = %v, want *APIError", err)
	}
	if apiErr.Code != 422 {
		t.Fatalf("APIError code = %d, want 422", apiErr.Code)
	}
}

func TestCallDecodesData(t *testing.T) {
	c, gate := newTestCoordinator(newScriptDoer())
	gate.SetTokens(context.Background(), auth.Credentials{AccessToken: "new-at", RefreshToken: "r"})

	got, err := Call[map[string]bool](context.Background(), c, Get("/accounts", nil))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !got["ok"] {
		t.Fatalf("Call() = %v, want ok", got)
	}
}
