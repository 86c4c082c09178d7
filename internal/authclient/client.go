package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"delivery-portal/internal/event"
)

var tracer = otel.Tracer("delivery-portal/authclient")

const (
	DefaultRefreshPath    = "/auth/refresh-token"
	DefaultSignInPath     = "/signin"
	DefaultRefreshTimeout = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

type ClientOptions struct {
	BaseURL        string
	Tokens         *TokenStore
	Credentials    *Credentials
	Jar            http.CookieJar
	Navigator      Navigator
	Bus            event.Bus
	SignInPath     string
	RefreshPath    string
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	Transport      http.RoundTripper
}

// Client talks JSON to the backend. Every call passes through the auth
// transport, which attaches the bearer token and recovers from an expired
// one.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	auth    *authTransport
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid API base url %q", opts.BaseURL)
	}
	if opts.Tokens == nil {
		if opts.Credentials != nil {
			opts.Tokens = opts.Credentials.Tokens()
		} else {
			opts.Tokens = NewTokenStore()
		}
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Navigator == nil {
		opts.Navigator = NavigatorFunc(func(context.Context, string) {})
	}
	if opts.SignInPath == "" {
		opts.SignInPath = DefaultSignInPath
	}
	if opts.RefreshPath == "" {
		opts.RefreshPath = DefaultRefreshPath
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	auth := &authTransport{
		base:           opts.Transport,
		tokens:         opts.Tokens,
		creds:          opts.Credentials,
		refresher:      &http.Client{Transport: opts.Transport, Jar: opts.Jar},
		refreshURL:     resolve(baseURL, opts.RefreshPath).String(),
		refreshTimeout: opts.RefreshTimeout,
		nav:            opts.Navigator,
		bus:            opts.Bus,
		signInPath:     opts.SignInPath,
	}

	return &Client{
		baseURL: baseURL,
		auth:    auth,
		http: &http.Client{
			Transport: auth,
			Jar:       opts.Jar,
			Timeout:   opts.RequestTimeout,
		},
	}, nil
}

func (c *Client) Tokens() *TokenStore {
	return c.auth.tokens
}

// OnSessionExpired registers fn to run after a failed refresh has cleared
// the credentials.
func (c *Client) OnSessionExpired(fn func(ctx context.Context)) {
	c.auth.mu.Lock()
	c.auth.onExpired = append(c.auth.onExpired, fn)
	c.auth.mu.Unlock()
}

// Do sends a request relative to the base URL. body is sent as-is when it is
// a []byte and JSON encoded otherwise. Non-2xx answers come back as
// *HTTPError.
func (c *Client) Do(ctx context.Context, method string, path string, body any) (*Response, error) {
	ctx, span := tracer.Start(ctx, "authclient "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("http.route", path)),
	)
	defer span.End()

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = classify(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrServerUnreachable, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := newHTTPError(resp.StatusCode, payload)
		span.SetStatus(codes.Error, httpErr.Error())
		return nil, httpErr
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}

func (c *Client) newRequest(ctx context.Context, method string, path string, body any) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}

	var reader io.Reader
	if body != nil {
		var encoded []byte
		switch v := body.(type) {
		case []byte:
			encoded = v
		default:
			if encoded, err = json.Marshal(v); err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
		}
		reader = bytes.NewReader(encoded)
	}

	target := resolve(c.baseURL, ref.Path)
	target.RawQuery = ref.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func resolve(base *url.URL, path string) *url.URL {
	resolved := base.JoinPath(path)
	resolved.RawQuery = ""
	return resolved
}

func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrSessionExpired):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
}
