// Package auth holds the session state: the token pair, the signed-in
// user, and their persistence. Nothing else in the process may write
// the token pair.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"moneyflow/internal/core"
	"moneyflow/internal/storage"
)

type (
	// Credentials is the access/refresh token pair issued at login.
	Credentials struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	// User is the signed-in profile as the backend reports it.
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email,omitempty"`
		Avatar   string `json:"avatar,omitempty"`
	}

	session struct {
		Credentials Credentials `json:"credentials"`
		User        User        `json:"user"`
	}
)

// Gate is the process-wide session holder.
type Gate struct {
	mu    sync.Mutex
	creds Credentials
	user  User
	kv    storage.Store
}

func NewGate(kv storage.Store) *Gate {
	return &Gate{kv: kv}
}

// Init restores a previously persisted session, if any.
func (g *Gate) Init(ctx context.Context) {
	blob, ok, err := g.kv.Load(ctx, storage.KeySession)
	if err != nil || !ok {
		return
	}
	var s session
	if err := json.Unmarshal(blob, &s); err != nil {
		slog.WarnContext(ctx, "Stored session unusable, starting signed out", "error", err)
		return
	}
	g.mu.Lock()
	g.creds = s.Credentials
	g.user = s.User
	g.mu.Unlock()
}

// SetSession installs a new token pair and user, persisting both.
func (g *Gate) SetSession(ctx context.Context, creds Credentials, user User) {
	g.mu.Lock()
	g.creds = creds
	g.user = user
	g.mu.Unlock()
	g.persist(ctx)
}

// SetTokens replaces the token pair after a refresh, keeping the user.
func (g *Gate) SetTokens(ctx context.Context, creds Credentials) {
	g.mu.Lock()
	g.creds = creds
	g.mu.Unlock()
	g.persist(ctx)
}

// Clear wipes the session, both in memory and persisted.
func (g *Gate) Clear(ctx context.Context) {
	g.mu.Lock()
	g.creds = Credentials{}
	g.user = User{}
	g.mu.Unlock()
	if err := g.kv.Delete(ctx, storage.KeySession); err != nil {
		slog.WarnContext(ctx, "Failed to remove stored session", "error", err)
	}
}

func (g *Gate) persist(ctx context.Context) {
	g.mu.Lock()
	s := session{Credentials: g.creds, User: g.user}
	g.mu.Unlock()
	blob, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := g.kv.Save(ctx, storage.KeySession, blob); err != nil {
		slog.WarnContext(ctx, "Failed to persist session", "error", err)
	}
}

// Credentials returns the current token pair.
func (g *Gate) Credentials() Credentials {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creds
}

// User returns the signed-in profile.
func (g *Gate) User() User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user
}

// IsAuthenticated reports whether an access token is present. Whether it
// is still accepted is for the backend to decide.
func (g *Gate) IsAuthenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creds.AccessToken != ""
}

// TokenExpiry reads the exp claim out of a token without verifying its
// signature. The backend remains the authority on validity; this only
// supports local pre-expiry checks.
func TokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiry: %w", core.ErrAuthExpired)
	}
	return exp.Time, nil
}

// Expired reports whether the token's exp claim is in the past. A token
// that cannot be parsed counts as expired.
func Expired(token string, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return exp.Before(now)
}
