package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"delivery-portal/internal/authz"
)

const (
	CookieAccessToken = authz.TokenCookie
	CookieUserRole    = authz.RoleCookie

	DefaultCookieMaxAge = 7 * 24 * time.Hour
)

type storedCookie struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// CookieJar is an http.CookieJar scoped to the portal origin whose cookies
// survive restarts through Storage. Cookies for other hosts live only in
// memory.
type CookieJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	origin  *url.URL
	storage Storage
	records map[string]storedCookie
	now     func() time.Time
}

func NewCookieJar(ctx context.Context, origin string, storage Storage) (*CookieJar, error) {
	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return nil, fmt.Errorf("invalid cookie origin %q", origin)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	j := &CookieJar{
		jar:     jar,
		origin:  &url.URL{Scheme: originURL.Scheme, Host: originURL.Host, Path: "/"},
		storage: storage,
		records: map[string]storedCookie{},
		now:     time.Now,
	}

	if err := j.restore(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *CookieJar) Origin() *url.URL {
	copied := *j.origin
	return &copied
}

func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)
	if u.Host != j.origin.Host {
		return
	}

	for _, cookie := range cookies {
		j.recordLocked(cookie)
	}
	if err := j.persistLocked(context.Background()); err != nil {
		slog.Warn("cookie persistence failed", "component", "cookiejar", "error", err)
	}
}

// Set writes a cookie for the portal origin with path=/.
func (j *CookieJar) Set(ctx context.Context, name string, value string, maxAge time.Duration) error {
	cookie := &http.Cookie{Name: name, Value: value, Path: "/", MaxAge: int(maxAge / time.Second)}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(j.origin, []*http.Cookie{cookie})
	j.recordLocked(cookie)
	return j.persistLocked(ctx)
}

// Clear expires the named cookies on the portal origin.
func (j *CookieJar) Clear(ctx context.Context, names ...string) error {
	expired := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		expired = append(expired, &http.Cookie{Name: name, Path: "/", MaxAge: -1})
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(j.origin, expired)
	for _, cookie := range expired {
		delete(j.records, cookie.Name)
	}
	return j.persistLocked(ctx)
}

// Get returns the value the jar would send to the portal origin.
func (j *CookieJar) Get(name string) (string, bool) {
	for _, cookie := range j.jar.Cookies(j.origin) {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}
	return "", false
}

func (j *CookieJar) recordLocked(cookie *http.Cookie) {
	now := j.now()
	switch {
	case cookie.MaxAge < 0:
		delete(j.records, cookie.Name)
	case cookie.MaxAge > 0:
		j.records[cookie.Name] = storedCookie{Value: cookie.Value, Expires: now.Add(time.Duration(cookie.MaxAge) * time.Second)}
	case !cookie.Expires.IsZero() && !cookie.Expires.After(now):
		delete(j.records, cookie.Name)
	default:
		j.records[cookie.Name] = storedCookie{Value: cookie.Value, Expires: cookie.Expires}
	}
}

func (j *CookieJar) persistLocked(ctx context.Context) error {
	if j.storage == nil {
		return nil
	}
	if len(j.records) == 0 {
		return j.storage.Remove(ctx, keyCookies)
	}

	content, err := json.Marshal(j.records)
	if err != nil {
		return err
	}
	return j.storage.Set(ctx, keyCookies, string(content))
}

func (j *CookieJar) restore(ctx context.Context) error {
	if j.storage == nil {
		return nil
	}

	raw, ok, err := j.storage.Get(ctx, keyCookies)
	if err != nil {
		return fmt.Errorf("load cookies: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}

	records := map[string]storedCookie{}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		slog.Warn("discarding unreadable stored cookies", "component", "cookiejar", "error", err)
		return j.storage.Remove(ctx, keyCookies)
	}

	now := j.now()
	cookies := make([]*http.Cookie, 0, len(records))
	for name, record := range records {
		if !record.Expires.IsZero() && !record.Expires.After(now) {
			continue
		}
		j.records[name] = record
		cookies = append(cookies, &http.Cookie{Name: name, Value: record.Value, Path: "/", Expires: record.Expires})
	}
	j.jar.SetCookies(j.origin, cookies)
	return nil
}
