package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"moneyflow/internal/storage"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func TestSetSessionAndRestore(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()

	g := NewGate(kv)
	creds := Credentials{AccessToken: "at", RefreshToken: "rt"}
	user := User{ID: "u1", Username: "sam"}
	g.SetSession(ctx, creds, user)

	if !g.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = false after SetSession")
	}

	// A fresh gate over the same storage restores the session.
	restored := NewGate(kv)
	restored.Init(ctx)
	if got := restored.Credentials(); got != creds {
		t.Fatalf("restored credentials = %+v, want %+v", got, creds)
	}
	if got := restored.User(); got != user {
		t.Fatalf("restored user = %+v, want %+v", got, user)
	}
}

func TestSetTokensKeepsUser(t *testing.T) {
	g := NewGate(storage.NewMemoryStore())
	ctx := context.Background()
	g.SetSession(ctx, Credentials{AccessToken: "old"}, User{ID: "u1", Username: "sam"})

	g.SetTokens(ctx, Credentials{AccessToken: "new", RefreshToken: "new-r"})
	if got := g.Credentials().AccessToken; got != "new" {
		t.Fatalf("access token = %q, want %q", got, "new")
	}
	if got := g.User().Username; got != "sam" {
		t.Fatalf("user = %q after token swap, want unchanged", got)
	}
}

func TestClearWipesSessionEverywhere(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()
	g := NewGate(kv)
	g.SetSession(ctx, Credentials{AccessToken: "at"}, User{ID: "u1"})

	g.Clear(ctx)
	if g.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = true after Clear")
	}
	if _, ok, _ := kv.Load(ctx, storage.KeySession); ok {
		t.Fatal("persisted session still present after Clear")
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, exp)

	got, err := TokenExpiry(token)
	if err != nil {
		t.Fatalf("TokenExpiry() error = %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("TokenExpiry() = %v, want %v", got, exp)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid for an hour", signedToken(t, now.Add(time.Hour)), false},
		{"expired an hour ago", signedToken(t, now.Add(-time.Hour)), true},
		{"garbage token", "not.a.token", true},
		{"empty token", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expired(tt.token, now); got != tt.want {
				t.Fatalf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}
