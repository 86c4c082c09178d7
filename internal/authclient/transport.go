package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"delivery-portal/internal/authz"
	"delivery-portal/internal/event"
	"delivery-portal/internal/model"
)

type retriedKey struct{}

// WithoutRefresh marks ctx so a 401 is returned to the caller instead of
// triggering a token refresh.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func alreadyRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}

type authTransport struct {
	base           http.RoundTripper
	tokens         *TokenStore
	creds          *Credentials
	refresher      *http.Client
	refreshURL     string
	refreshTimeout time.Duration
	nav            Navigator
	bus            event.Bus
	signInPath     string

	group singleflight.Group

	mu        sync.RWMutex
	onExpired []func(context.Context)
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(t.authorize(req))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || alreadyRetried(req.Context()) {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if _, err := t.refresh(req.Context()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	return t.RoundTrip(req.Clone(context.WithValue(req.Context(), retriedKey{}, true)))
}

func (t *authTransport) authorize(req *http.Request) *http.Request {
	outbound := req.Clone(req.Context())
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			outbound.Body = body
		}
	}
	if token, ok := t.tokens.Get(); ok {
		outbound.Header.Set("Authorization", "Bearer "+token)
	}
	return outbound
}

// replayable makes sure the body of req can be sent twice.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}

	buf, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}

	copied := req.Clone(req.Context())
	copied.Body = io.NopCloser(bytes.NewReader(buf))
	copied.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	return copied, nil
}

// refresh exchanges the refresh cookie for a new access token. Concurrent
// callers share one request; a failure clears the credentials and sends the
// user to sign in exactly once.
func (t *authTransport) refresh(ctx context.Context) (string, error) {
	result, err, shared := t.group.Do("refresh", func() (any, error) {
		base := context.WithoutCancel(ctx)
		refreshCtx, cancel := context.WithTimeout(base, t.refreshTimeout)
		defer cancel()

		refreshCtx, span := tracer.Start(refreshCtx, "authclient.refresh")
		defer span.End()

		token, err := t.requestToken(refreshCtx)
		if err == nil {
			err = t.store(refreshCtx, token)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			t.expire(base, err)
			return "", err
		}

		slog.Debug("access token refreshed", "component", "authclient")
		t.announce(token)
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		slog.Debug("joined in-flight token refresh", "component", "authclient")
	}
	return result.(string), nil
}

func (t *authTransport) requestToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := t.tokens.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.refresher.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newHTTPError(resp.StatusCode, payload)
	}

	var refreshed model.RefreshResponse
	if err := json.Unmarshal(payload, &refreshed); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if refreshed.AccessToken == "" {
		return "", errors.New("refresh response did not include an access token")
	}
	return refreshed.AccessToken, nil
}

func (t *authTransport) store(ctx context.Context, token string) error {
	if t.creds == nil {
		t.tokens.Set(token)
		return nil
	}
	return t.creds.UpdateToken(ctx, token)
}

func (t *authTransport) announce(token string) {
	if t.bus == nil {
		return
	}
	payload := map[string]any{}
	if role, err := authz.RoleFromToken(token); err == nil && role != "" {
		payload["role"] = string(role)
	}
	t.bus.Publish(event.New(event.TypeTokenRefreshed, "", payload))
}

func (t *authTransport) expire(ctx context.Context, cause error) {
	slog.Warn("token refresh failed, clearing session", "component", "authclient", "error", cause)

	purgeCtx, cancel := context.WithTimeout(ctx, t.refreshTimeout)
	defer cancel()

	t.tokens.Clear()
	if t.creds != nil {
		_ = t.creds.Purge(purgeCtx)
	}
	t.nav.Navigate(ctx, t.signInPath)

	t.mu.RLock()
	hooks := append([]func(context.Context){}, t.onExpired...)
	t.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx)
	}
}
