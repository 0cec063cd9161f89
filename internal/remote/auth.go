package remote

import (
	"context"
	"fmt"
	"log/slog"

	"moneyflow/internal/auth"
	"moneyflow/internal/client"
	"moneyflow/internal/notify"
)

// AuthClient drives the backend's auth endpoints and keeps the gate in
// step with their results.
type AuthClient struct {
	api    *client.Coordinator
	gate   *auth.Gate
	center *notify.Center
}

func NewAuthClient(api *client.Coordinator, gate *auth.Gate, center *notify.Center) *AuthClient {
	return &AuthClient{api: api, gate: gate, center: center}
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

func (d userDTO) toDomain() auth.User {
	return auth.User{ID: d.ID, Username: d.Username, Email: d.Email, Avatar: d.Avatar}
}

type loginResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         userDTO `json:"user"`
}

// Login exchanges credentials for a session. The call itself never
// triggers the refresh protocol.
func (a *AuthClient) Login(ctx context.Context, username, password string) (auth.User, error) {
	req := client.Post("/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	req.NoAuth = true
	resp, err := client.Call[loginResponse](ctx, a.api, req)
	if err != nil {
		a.center.Error("Signing in failed")
		return auth.User{}, fmt.Errorf("login: %w", err)
	}
	user := resp.User.toDomain()
	a.gate.SetSession(ctx, auth.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, user)
	a.center.Success("Signed in")
	slog.InfoContext(ctx, "User signed in", "user_id", user.ID)
	return user, nil
}

// Register creates an account and signs in with the returned session.
func (a *AuthClient) Register(ctx context.Context, username, password, email string) (auth.User, error) {
	req := client.Post("/auth/register", map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	})
	req.NoAuth = true
	resp, err := client.Call[loginResponse](ctx, a.api, req)
	if err != nil {
		a.center.Error("Creating the account failed")
		return auth.User{}, fmt.Errorf("register: %w", err)
	}
	user := resp.User.toDomain()
	a.gate.SetSession(ctx, auth.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, user)
	a.center.Success("Account created")
	return user, nil
}

// Me fetches the signed-in profile from the backend.
func (a *AuthClient) Me(ctx context.Context) (auth.User, error) {
	d, err := client.Call[userDTO](ctx, a.api, client.Get("/auth/me", nil))
	if err != nil {
		return auth.User{}, fmt.Errorf("fetching profile: %w", err)
	}
	return d.toDomain(), nil
}

// Logout tells the backend, then clears local state whether or not the
// backend call succeeded.
func (a *AuthClient) Logout(ctx context.Context) {
	if _, err := a.api.Do(ctx, client.Post("/auth/logout", nil)); err != nil {
		slog.WarnContext(ctx, "Backend logout failed, clearing local session anyway", "error", err)
	}
	a.gate.Clear(ctx)
	a.center.Info("Signed out")
}
