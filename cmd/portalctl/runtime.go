package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"delivery-portal/internal/authclient"
	"delivery-portal/internal/config"
	"delivery-portal/internal/event"
)

type configFunc func() *config.ClientConfig

// session bundles the client stack with the navigator it reports to.
type session struct {
	*authclient.Stack
	nav     *portalNavigator
	closeFn func()
}

func (s *session) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

func openSession(ctx context.Context, cfg *config.ClientConfig) (*session, error) {
	storage, closeFn, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	nav := &portalNavigator{portal: strings.TrimRight(cfg.PortalURL, "/"), out: os.Stdout}
	stack, err := authclient.NewStack(ctx, authclient.Options{
		PortalURL:      cfg.PortalURL,
		APIBaseURL:     cfg.APIBaseURL,
		Storage:        storage,
		Navigator:      nav,
		SignInPath:     cfg.SignInPath,
		ValidateMethod: cfg.ValidateMethod,
		ValidatePath:   cfg.ValidatePath,
		CookieMaxAge:   cfg.CookieMaxAge,
		RefreshTimeout: cfg.RefreshTimeout,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		closeFn()
		return nil, err
	}

	nav.client = &http.Client{
		Jar:     stack.Cookies,
		Timeout: cfg.RequestTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	expired, unsubscribe := stack.Bus.Subscribe(event.TypeSessionExpired)
	go func() {
		for range expired {
			warn("Session expired, sign in again")
		}
	}()

	return &session{Stack: stack, nav: nav, closeFn: func() {
		unsubscribe()
		closeFn()
	}}, nil
}

func openStorage(ctx context.Context, cfg *config.ClientConfig) (authclient.Storage, func(), error) {
	if cfg.RedisURL != "" {
		redisStorage, err := authclient.NewRedisStorageFromURL(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return redisStorage, func() { _ = redisStorage.Close() }, nil
	}

	fileStorage, err := authclient.NewFileStorage(cfg.StorageFile)
	if err != nil {
		return nil, nil, err
	}
	return fileStorage, func() {}, nil
}

// visit is the outcome of loading one portal page.
type visit struct {
	Path     string
	Status   int
	Location string
}

func (v visit) Redirected() bool {
	return v.Location != "" && v.Status >= 300 && v.Status < 400
}

// portalNavigator loads portal pages with the session cookies, the way a
// browser would after a location change.
type portalNavigator struct {
	portal string
	client *http.Client
	out    io.Writer

	mu     sync.Mutex
	visits []visit
}

func (n *portalNavigator) Navigate(ctx context.Context, target string) {
	v, err := n.Visit(ctx, target)
	if err != nil {
		fmt.Fprintf(n.out, "  navigation to %s failed: %v\n", target, err)
		return
	}
	if v.Redirected() {
		fmt.Fprintf(n.out, "  %s -> %s (%d)\n", v.Path, v.Location, v.Status)
		return
	}
	fmt.Fprintf(n.out, "  %s (%d)\n", v.Path, v.Status)
}

func (n *portalNavigator) Visit(ctx context.Context, path string) (visit, error) {
	if n.client == nil {
		return visit{}, fmt.Errorf("navigator is not ready")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.portal+path, nil)
	if err != nil {
		return visit{}, err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return visit{}, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	v := visit{Path: path, Status: resp.StatusCode, Location: resp.Header.Get("Location")}
	n.mu.Lock()
	n.visits = append(n.visits, v)
	n.mu.Unlock()
	return v, nil
}

func (n *portalNavigator) Visits() []visit {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]visit(nil), n.visits...)
}
