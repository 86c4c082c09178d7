package authclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"delivery-portal/internal/authz"
	"delivery-portal/internal/model"
)

const (
	DefaultValidateMethod = http.MethodGet
	DefaultValidatePath   = "/auth/validate"

	purgeTimeout = 5 * time.Second
)

type ServiceOptions struct {
	ValidateMethod string
	ValidatePath   string
}

type AuthService struct {
	client *Client
	creds  *Credentials
	opts   ServiceOptions
}

func NewAuthService(client *Client, creds *Credentials, opts ServiceOptions) *AuthService {
	if opts.ValidateMethod == "" {
		opts.ValidateMethod = DefaultValidateMethod
	}
	if opts.ValidatePath == "" {
		opts.ValidatePath = DefaultValidatePath
	}
	opts.ValidateMethod = strings.ToUpper(opts.ValidateMethod)
	return &AuthService{client: client, creds: creds, opts: opts}
}

// Login authenticates and persists the token and user everywhere the portal
// looks for them.
func (s *AuthService) Login(ctx context.Context, email string, password string) (*model.LoginResponse, error) {
	// A 401 here means bad credentials, not an expired session.
	resp, err := s.client.Do(WithoutRefresh(ctx), http.MethodPost, "/auth/login", model.LoginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if err != nil {
		return nil, withFallback(err, "Failed to login")
	}

	var login model.LoginResponse
	if err := resp.Decode(&login); err != nil {
		return nil, err
	}
	if login.AccessToken == "" {
		return nil, ErrMissingToken
	}

	if err := s.creds.Persist(ctx, login.AccessToken, login.User); err != nil {
		return nil, fmt.Errorf("persist credentials: %w", err)
	}

	slog.Info("signed in", "component", "authservice", "user_id", login.User.ID, "role", string(login.User.Role))
	return &login, nil
}

func (s *AuthService) RegisterCustomer(ctx context.Context, req model.RegisterCustomerRequest) (*model.User, error) {
	if strings.TrimSpace(req.Role) == "" {
		req.Role = string(authz.RoleCustomer)
	}
	return s.register(ctx, "/auth/register/customer", req, "Failed to register")
}

func (s *AuthService) RegisterRider(ctx context.Context, req model.RegisterRiderRequest) (*model.User, error) {
	if strings.TrimSpace(req.Role) == "" {
		req.Role = string(authz.RoleRider)
	}
	return s.register(ctx, "/auth/register/rider", req, "Failed to register rider")
}

// register creates the account only. The caller still has to sign in.
func (s *AuthService) register(ctx context.Context, path string, body any, fallback string) (*model.User, error) {
	resp, err := s.client.Do(WithoutRefresh(ctx), http.MethodPost, path, body)
	if err != nil {
		return nil, withFallback(err, fallback)
	}

	var registered model.RegisterResponse
	if err := resp.Decode(&registered); err != nil {
		return nil, err
	}
	return &registered.User, nil
}

// Logout tells the backend best-effort and always clears local credentials.
func (s *AuthService) Logout(ctx context.Context) {
	defer s.ClearCredentials(ctx)

	if _, ok := s.client.Tokens().Get(); !ok {
		if token, found, _ := s.creds.StoredToken(ctx); found {
			s.client.Tokens().Set(token)
		}
	}

	_, err := s.client.Do(WithoutRefresh(ctx), http.MethodPost, "/auth/logout", model.LogoutRequest{})
	if err != nil {
		slog.Warn("logout request failed", "component", "authservice", "error", err)
	}
}

// ValidateToken reports whether the backend still accepts the stored token.
func (s *AuthService) ValidateToken(ctx context.Context) bool {
	token, ok, err := s.creds.StoredToken(ctx)
	if err != nil {
		slog.Warn("read stored token failed", "component", "authservice", "error", err)
		return false
	}
	if !ok {
		return false
	}

	s.client.Tokens().Set(token)
	if _, err := s.client.Do(ctx, s.opts.ValidateMethod, s.opts.ValidatePath, nil); err != nil {
		slog.Debug("token validation failed", "component", "authservice", "error", err)
		return false
	}
	return true
}

func (s *AuthService) StoredUser(ctx context.Context) (*model.User, bool) {
	user, ok, err := s.creds.StoredUser(ctx)
	if err != nil {
		slog.Warn("read stored user failed", "component", "authservice", "error", err)
		return nil, false
	}
	return user, ok
}

// ClearCredentials purges every copy of the credentials. The purge outlives
// a cancelled ctx so a logout is never left half done.
func (s *AuthService) ClearCredentials(ctx context.Context) {
	purgeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), purgeTimeout)
	defer cancel()

	_ = s.creds.Purge(purgeCtx)
}
