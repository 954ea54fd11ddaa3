package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrBackendNotConfigured = errors.New("BACKEND_API_URL and BACKEND_API_BEARER_TOKEN envvars must be populated")

type Config struct {
	Env        string `env:"ENVIRONMENT"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	ServerDNS  string `env:"SERVER_DNS" envDefault:"http://localhost:8080"`

	Backend struct {
		URL         string `env:"BACKEND_API_URL"`
		BearerToken string `env:"BACKEND_API_BEARER_TOKEN"`
	}
	Session struct {
		Secret     string `env:"SESSION_SECRET"`
		CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"stockwatch_session"`
		TTLHours   int    `env:"SESSION_TTL_HOURS" envDefault:"720"`
	}
	Google struct {
		ClientID     string `env:"GOOGLE_CLIENT_ID"`
		ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	}
	Geocoding struct {
		PrimaryURL     string `env:"GEOCODING_PRIMARY_URL" envDefault:"https://nominatim.openstreetmap.org/reverse"`
		FallbackURL    string `env:"GEOCODING_FALLBACK_URL" envDefault:"https://api.opencagedata.com/geocode/v1/json"`
		FallbackAPIKey string `env:"GEOCODING_FALLBACK_API_KEY"`
	}
	DatabasePath string   `env:"DATABASE_PATH" envDefault:"stockwatch.sqlite"`
	ProductHosts []string `env:"PRODUCT_HOSTS" envSeparator:"," envDefault:"shop.amul.com"`

	log        *zap.Logger
	backend    Credential
	backendErr error
}

// Credential is the static shared secret used to reach the backend.
type Credential struct {
	BaseURL string
	Token   string
}

func (c Credential) Bearer() string {
	return c.Token
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) (*Config, error) {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.backendErr != nil {
		cfg.log.Sugar().Warnw("Backend is not configured, proxy requests will be rejected", "err", cfg.backendErr)
	}
	if !cfg.SignInEnabled() {
		cfg.log.Sugar().Info("Sign-in is disabled since GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET are not defined")
	}
	return cfg, nil
}

// Validate checks the values that the process cannot start without, and
// records whether the backend credential is usable. A missing backend does
// not stop startup; every proxy operation fails closed instead.
func (cfg *Config) Validate() error {
	if cfg.Session.Secret == "" {
		if cfg.Env == "production" {
			return errors.New("SESSION_SECRET envvar must be populated")
		}
		cfg.Session.Secret = "development-session-secret"
		if cfg.log != nil {
			cfg.log.Sugar().Info("SESSION_SECRET is not defined (session secret will be set to default in development env)")
		}
	}
	if cfg.Session.TTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive, got %d", cfg.Session.TTLHours)
	}

	cfg.backend, cfg.backendErr = parseCredential(cfg.Backend.URL, cfg.Backend.BearerToken)
	return nil
}

func parseCredential(rawURL, token string) (Credential, error) {
	rawURL = strings.TrimSpace(rawURL)
	token = strings.TrimSpace(token)
	if rawURL == "" || token == "" {
		return Credential{}, ErrBackendNotConfigured
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Credential{}, fmt.Errorf("%w: malformed BACKEND_API_URL %q", ErrBackendNotConfigured, rawURL)
	}
	return Credential{BaseURL: strings.TrimRight(rawURL, "/"), Token: token}, nil
}

// BackendCredential returns the validated backend location and token, or
// ErrBackendNotConfigured.
func (cfg *Config) BackendCredential() (Credential, error) {
	if cfg.backendErr != nil {
		return Credential{}, cfg.backendErr
	}
	if cfg.backend.BaseURL == "" {
		// Validate was never called.
		return parseCredential(cfg.Backend.URL, cfg.Backend.BearerToken)
	}
	return cfg.backend, nil
}

func (cfg *Config) SessionTTL() time.Duration {
	return time.Duration(cfg.Session.TTLHours) * time.Hour
}

func (cfg *Config) SignInEnabled() bool {
	return cfg.Google.ClientID != "" && cfg.Google.ClientSecret != ""
}

func (cfg *Config) Production() bool {
	return cfg.Env == "production"
}
