package authclient

import (
	"context"
	"net/http"
	"time"

	"delivery-portal/internal/event"
)

type Options struct {
	PortalURL      string
	APIBaseURL     string
	Storage        Storage
	Navigator      Navigator
	Bus            event.Bus
	SignInPath     string
	RefreshPath    string
	ValidateMethod string
	ValidatePath   string
	CookieMaxAge   time.Duration
	RefreshTimeout time.Duration
	RequestTimeout time.Duration
	Transport      http.RoundTripper
}

// Stack is the wired client side of the portal: one token store shared by
// the client, the credentials and the session.
type Stack struct {
	Tokens      *TokenStore
	Storage     Storage
	Cookies     *CookieJar
	Credentials *Credentials
	Client      *Client
	Service     *AuthService
	Session     *Session
	Bus         event.Bus
}

func NewStack(ctx context.Context, opts Options) (*Stack, error) {
	if opts.Storage == nil {
		opts.Storage = NewMemoryStorage()
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}
	if opts.SignInPath == "" {
		opts.SignInPath = DefaultSignInPath
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = opts.PortalURL
	}

	cookies, err := NewCookieJar(ctx, opts.PortalURL, opts.Storage)
	if err != nil {
		return nil, err
	}

	tokens := NewTokenStore()
	creds := NewCredentials(tokens, opts.Storage, cookies, opts.CookieMaxAge)

	client, err := NewClient(ClientOptions{
		BaseURL:        opts.APIBaseURL,
		Tokens:         tokens,
		Credentials:    creds,
		Jar:            cookies,
		Navigator:      opts.Navigator,
		Bus:            opts.Bus,
		SignInPath:     opts.SignInPath,
		RefreshPath:    opts.RefreshPath,
		RequestTimeout: opts.RequestTimeout,
		RefreshTimeout: opts.RefreshTimeout,
		Transport:      opts.Transport,
	})
	if err != nil {
		return nil, err
	}

	service := NewAuthService(client, creds, ServiceOptions{
		ValidateMethod: opts.ValidateMethod,
		ValidatePath:   opts.ValidatePath,
	})
	session := NewSession(service, opts.Navigator, opts.Bus, opts.SignInPath)
	client.OnSessionExpired(session.Expire)

	return &Stack{
		Tokens:      tokens,
		Storage:     opts.Storage,
		Cookies:     cookies,
		Credentials: creds,
		Client:      client,
		Service:     service,
		Session:     session,
		Bus:         opts.Bus,
	}, nil
}
