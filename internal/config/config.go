package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"delivery-portal/internal/authz"
)

type Config struct {
	ServerPort              string        `env:"SERVER_PORT" envDefault:"3000"`
	ServerReadHeaderTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	ServerWriteTimeout      time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ServerIdleTimeout       time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout          time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	BackendURL              string        `env:"BACKEND_URL" envDefault:"http://localhost:8000"`
	CORSOrigins             []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitRPM            int           `env:"RATE_LIMIT_RPM" envDefault:"300"`
	AuthRateLimitRPM        int           `env:"AUTH_RATE_LIMIT_RPM" envDefault:"20"`
	SignInPath              string        `env:"SIGNIN_PATH" envDefault:"/signin"`
	UnauthorizedPath        string        `env:"UNAUTHORIZED_PATH" envDefault:"/unauthorized"`
	PublicRoutes            []string      `env:"PUBLIC_ROUTES" envSeparator:","`
	RouteRoles              string        `env:"ROUTE_ROLES"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`

	Policy authz.Policy `env:"-"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	cfg.PublicRoutes = trimAll(cfg.PublicRoutes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values and builds the route policy from them.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if err := requireAbsoluteURL("BACKEND_URL", c.BackendURL); err != nil {
		return err
	}

	if !strings.HasPrefix(c.SignInPath, "/") {
		return fmt.Errorf("SIGNIN_PATH must start with /")
	}

	if !strings.HasPrefix(c.UnauthorizedPath, "/") {
		return fmt.Errorf("UNAUTHORIZED_PATH must start with /")
	}

	policy := authz.DefaultPolicy()
	policy.SignInPath = c.SignInPath
	policy.UnauthorizedPath = c.UnauthorizedPath

	if len(c.PublicRoutes) > 0 {
		policy.PublicRoutes = slices.Clone(c.PublicRoutes)
	}
	for _, required := range []string{c.SignInPath, c.UnauthorizedPath} {
		if !policy.IsPublic(required) {
			// Redirect targets must stay reachable or the guard loops.
			policy.PublicRoutes = append(policy.PublicRoutes, required)
		}
	}

	if strings.TrimSpace(c.RouteRoles) != "" {
		rules, err := authz.ParseRules(c.RouteRoles)
		if err != nil {
			return fmt.Errorf("ROUTE_ROLES: %w", err)
		}
		policy.Rules = rules
	}

	c.Policy = policy
	return nil
}

type ClientConfig struct {
	PortalURL      string        `env:"PORTAL_URL" envDefault:"http://localhost:3000"`
	APIBaseURL     string        `env:"API_BASE_URL"`
	RefreshTimeout time.Duration `env:"REFRESH_TIMEOUT" envDefault:"10s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	StorageFile    string        `env:"STORAGE_FILE"`
	RedisURL       string        `env:"REDIS_URL"`
	RedisPrefix    string        `env:"REDIS_PREFIX" envDefault:"portal:"`
	ValidateMethod string        `env:"VALIDATE_METHOD" envDefault:"GET"`
	ValidatePath   string        `env:"VALIDATE_PATH" envDefault:"/auth/validate"`
	CookieMaxAge   time.Duration `env:"COOKIE_MAX_AGE" envDefault:"168h"`
	SignInPath     string        `env:"SIGNIN_PATH" envDefault:"/signin"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"warn"`
}

// LoadClient reads the configuration of the command line client. The API is
// reached through the portal's /api forwarder unless API_BASE_URL says
// otherwise.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.PortalURL = strings.TrimRight(cfg.PortalURL, "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = cfg.PortalURL + "/api"
	}
	if cfg.StorageFile == "" && cfg.RedisURL == "" {
		cfg.StorageFile = defaultStorageFile()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if err := requireAbsoluteURL("PORTAL_URL", c.PortalURL); err != nil {
		return err
	}

	if err := requireAbsoluteURL("API_BASE_URL", c.APIBaseURL); err != nil {
		return err
	}

	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("REFRESH_TIMEOUT must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.CookieMaxAge <= 0 {
		return fmt.Errorf("COOKIE_MAX_AGE must be positive")
	}

	if !strings.HasPrefix(c.ValidatePath, "/") {
		return fmt.Errorf("VALIDATE_PATH must start with /")
	}

	return nil
}

func defaultStorageFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "portalctl", "session.json")
}

func requireAbsoluteURL(key string, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
