package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"delivery-portal/internal/authz"
	"delivery-portal/internal/model"
)

// CookieStore is the part of CookieJar credentials need.
type CookieStore interface {
	Set(ctx context.Context, name string, value string, maxAge time.Duration) error
	Clear(ctx context.Context, names ...string) error
	Get(name string) (string, bool)
}

// Credentials keeps the three copies of the access token (memory, storage,
// cookie) moving together. Every write either lands in all of them or is
// rolled back.
type Credentials struct {
	mu      sync.Mutex
	tokens  *TokenStore
	storage Storage
	cookies CookieStore
	maxAge  time.Duration
}

func NewCredentials(tokens *TokenStore, storage Storage, cookies CookieStore, maxAge time.Duration) *Credentials {
	if maxAge <= 0 {
		maxAge = DefaultCookieMaxAge
	}
	return &Credentials{tokens: tokens, storage: storage, cookies: cookies, maxAge: maxAge}
}

func (c *Credentials) Tokens() *TokenStore {
	return c.tokens
}

// Persist records a freshly issued token together with its user.
func (c *Credentials) Persist(ctx context.Context, token string, user model.User) error {
	encodedUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens.Set(token)
	err = c.writeLocked(ctx, token, func() error {
		return c.storage.Set(ctx, KeyUser, string(encodedUser))
	})
	if err == nil {
		err = c.roleCookieLocked(ctx, string(user.Role))
	}
	if err != nil {
		c.purgeLocked(ctx)
		return err
	}
	return nil
}

// UpdateToken replaces the token after a refresh. The role cookie follows the
// new token's claim when it carries one.
func (c *Credentials) UpdateToken(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	role := ""
	if claimed, err := authz.RoleFromToken(token); err == nil {
		role = string(claimed)
	}

	c.tokens.Set(token)
	err := c.writeLocked(ctx, token, nil)
	if err == nil && role != "" {
		err = c.roleCookieLocked(ctx, role)
	}
	if err != nil {
		c.purgeLocked(ctx)
		return err
	}
	return nil
}

func (c *Credentials) writeLocked(ctx context.Context, token string, extra func() error) error {
	if err := c.storage.Set(ctx, KeyAccessToken, token); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if extra != nil {
		if err := extra(); err != nil {
			return fmt.Errorf("store user: %w", err)
		}
	}
	if err := c.cookies.Set(ctx, CookieAccessToken, token, c.maxAge); err != nil {
		return fmt.Errorf("set token cookie: %w", err)
	}
	return nil
}

// roleCookieLocked mirrors role into the role cookie. An empty role removes
// the cookie so a previous user's role never survives.
func (c *Credentials) roleCookieLocked(ctx context.Context, role string) error {
	if role == "" {
		if err := c.cookies.Clear(ctx, CookieUserRole); err != nil {
			return fmt.Errorf("clear role cookie: %w", err)
		}
		return nil
	}
	if err := c.cookies.Set(ctx, CookieUserRole, role, c.maxAge); err != nil {
		return fmt.Errorf("set role cookie: %w", err)
	}
	return nil
}

// Purge removes every copy of the credentials. It keeps going past failures
// and reports them joined.
func (c *Credentials) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(ctx)
}

func (c *Credentials) purgeLocked(ctx context.Context) error {
	c.tokens.Clear()

	var errs []error
	if err := c.storage.Remove(ctx, KeyAccessToken, KeyUser); err != nil {
		errs = append(errs, fmt.Errorf("clear storage: %w", err))
	}
	if err := c.cookies.Clear(ctx, CookieAccessToken, CookieUserRole); err != nil {
		errs = append(errs, fmt.Errorf("clear cookies: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		slog.Error("credential purge incomplete", "component", "credentials", "error", err)
	}
	return err
}

func (c *Credentials) StoredToken(ctx context.Context) (string, bool, error) {
	token, ok, err := c.storage.Get(ctx, KeyAccessToken)
	if err != nil || !ok || token == "" {
		return "", false, err
	}
	return token, true, nil
}

// StoredUser returns the persisted user. An unreadable record is treated as
// absent.
func (c *Credentials) StoredUser(ctx context.Context) (*model.User, bool, error) {
	raw, ok, err := c.storage.Get(ctx, KeyUser)
	if err != nil || !ok || raw == "" {
		return nil, false, err
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		slog.Warn("stored user is unreadable", "component", "credentials", "error", err)
		return nil, false, nil
	}
	return &user, true, nil
}

// Mirror describes where the token currently lives.
type Mirror struct {
	MemoryToken  string
	StorageToken string
	CookieToken  string
	CookieRole   string
	StoredUser   *model.User
}

// Consistent reports whether every copy agrees: all present and equal, or
// all absent.
func (m Mirror) Consistent() bool {
	if m.MemoryToken == "" && m.StorageToken == "" && m.CookieToken == "" {
		return m.StoredUser == nil
	}
	return m.MemoryToken == m.StorageToken && m.StorageToken == m.CookieToken
}

func (c *Credentials) Mirror(ctx context.Context) (Mirror, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var mirror Mirror
	mirror.MemoryToken, _ = c.tokens.Get()

	token, _, err := c.StoredToken(ctx)
	if err != nil {
		return Mirror{}, err
	}
	mirror.StorageToken = token
	mirror.CookieToken, _ = c.cookies.Get(CookieAccessToken)
	mirror.CookieRole, _ = c.cookies.Get(CookieUserRole)

	user, _, err := c.StoredUser(ctx)
	if err != nil {
		return Mirror{}, err
	}
	mirror.StoredUser = user
	return mirror, nil
}
