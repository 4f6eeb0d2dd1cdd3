// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultResumePrefix is the recruiting site URL prefix resume links must start with.
const DefaultResumePrefix = "https://fa-efpv-dev9-saasfaprod1.fa.ocs.oraclecloud.com/hcmUI/hcmRec"

// Config is the full application configuration. Values come from an optional
// YAML/JSON file, then environment variables, then env-default tags.
type Config struct {
	ResumePrefix string `yaml:"resume_prefix" json:"resume_prefix" env:"RESUME_PREFIX" env-default:"https://fa-efpv-dev9-saasfaprod1.fa.ocs.oraclecloud.com/hcmUI/hcmRec" validate:"required,url"`
	EvaluateURL  string `yaml:"evaluate_url" json:"evaluate_url" env:"EVALUATE_URL" env-default:"http://localhost:8000/evaluate/" validate:"required,url"`
	LinkedInURL  string `yaml:"linkedin_url" json:"linkedin_url" env:"LINKEDIN_URL" env-default:"http://localhost:8000/linkedin" validate:"required,url"`

	FetchThrottle time.Duration `yaml:"fetch_throttle" json:"fetch_throttle" env:"FETCH_THROTTLE" env-default:"500ms"`
	HTTPTimeout   time.Duration `yaml:"http_timeout" json:"http_timeout" env:"HTTP_TIMEOUT" env-default:"30s"`

	// SessionCookies is a Cookie header value ("name=value; other=value") sent with
	// page loads and PDF fetches.
	SessionCookies string `yaml:"session_cookies" json:"session_cookies" env:"SESSION_COOKIES"`

	StorePath     string `yaml:"store_path" json:"store_path" env:"STORE_PATH" env-default:"./data/results"`
	FallbackDir   string `yaml:"fallback_dir" json:"fallback_dir" env:"FALLBACK_DIR" env-default:"./data/fallback"`
	MaxStoreBytes int    `yaml:"max_store_bytes" json:"max_store_bytes" env:"MAX_STORE_BYTES" env-default:"5242880"`

	// DatabaseURL enables run history when set.
	DatabaseURL string `yaml:"database_url" json:"database_url" env:"DATABASE_URL"`

	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	JWT     JWTConfig     `yaml:"jwt" json:"jwt"`
	Log     LogConfig     `yaml:"log" json:"log"`
}

// BrowserConfig controls the headless Chrome page loader.
type BrowserConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" env:"BROWSER_ENABLED"`
	UserDataDir  string        `yaml:"user_data_dir" json:"user_data_dir" env:"BROWSER_USER_DATA_DIR"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" env:"BROWSER_TIMEOUT" env-default:"60s"`
	WaitSelector string        `yaml:"wait_selector" json:"wait_selector" env:"BROWSER_WAIT_SELECTOR"`
}

// ServerConfig controls the HTTP trigger service.
type ServerConfig struct {
	Port               int     `yaml:"port" json:"port" env:"SERVER_PORT" env-default:"8080" validate:"min=1,max=65535"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second" json:"rate_limit_per_second" env:"RATE_LIMIT_PER_SECOND" env-default:"5"`
	RateLimitBurst     int     `yaml:"rate_limit_burst" json:"rate_limit_burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

// LogConfig selects the logger level and output format.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT" env-default:"text" validate:"oneof=text json"`
}

// Load reads the configuration. When path is empty only the environment is read.
// Environment variables override file values; env-default tags fill the rest.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
		return &cfg, nil
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var err error

	if vErr := validator.New().Struct(c); vErr != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(vErr, &fieldErrs) {
			for _, fe := range fieldErrs {
				err = multierror.Append(err, fmt.Errorf("config error: %s failed %q validation", fe.Namespace(), fe.Tag()))
			}
		} else {
			err = multierror.Append(err, vErr)
		}
	}

	if c.FetchThrottle < 0 {
		err = multierror.Append(err, fmt.Errorf("config error: fetch_throttle must be non-negative"))
	}
	if c.HTTPTimeout <= 0 {
		err = multierror.Append(err, fmt.Errorf("config error: http_timeout must be positive"))
	}
	if c.Browser.Enabled && c.Browser.Timeout <= 0 {
		err = multierror.Append(err, fmt.Errorf("config error: browser.timeout must be positive"))
	}
	if c.MaxStoreBytes <= 0 {
		err = multierror.Append(err, fmt.Errorf("config error: max_store_bytes must be positive"))
	}
	if c.StorePath == "" {
		err = multierror.Append(err, fmt.Errorf("config error: store_path is required"))
	}
	if c.FallbackDir == "" {
		err = multierror.Append(err, fmt.Errorf("config error: fallback_dir is required"))
	}
	if c.StorePath != "" && filepath.Clean(c.StorePath) == filepath.Clean(c.FallbackDir) {
		err = multierror.Append(err, fmt.Errorf("config error: store_path and fallback_dir must differ"))
	}
	if c.DatabaseURL != "" {
		if u, pErr := url.Parse(c.DatabaseURL); pErr != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			err = multierror.Append(err, fmt.Errorf("config error: database_url must be a postgres:// URL"))
		}
	}
	if c.Server.RateLimitPerSecond < 0 {
		err = multierror.Append(err, fmt.Errorf("config error: server.rate_limit_per_second must be non-negative"))
	}
	if c.Server.RateLimitPerSecond > 0 && c.Server.RateLimitBurst < 1 {
		err = multierror.Append(err, fmt.Errorf("config error: server.rate_limit_burst must be at least 1 when rate limiting is enabled"))
	}
	if c.JWT.Secret != "" {
		if nErr := c.JWT.normalize(); nErr != nil {
			err = multierror.Append(err, fmt.Errorf("config error: %w", nErr))
		}
	}

	return err
}

// CookieURLs returns the origin session cookies are scoped to, the host of the
// resume prefix.
func (c *Config) CookieURLs() []string {
	u, err := url.Parse(c.ResumePrefix)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Scheme + "://" + u.Host}
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() Config {
	r := *c
	if r.SessionCookies != "" {
		r.SessionCookies = "[redacted]"
	}
	if r.JWT.Secret != "" {
		r.JWT.Secret = "[redacted]"
	}
	if r.DatabaseURL != "" {
		if u, err := url.Parse(r.DatabaseURL); err == nil && u.User != nil {
			u.User = url.User(u.User.Username())
			r.DatabaseURL = u.String()
		} else if strings.Contains(r.DatabaseURL, "@") {
			r.DatabaseURL = "[redacted]"
		}
	}
	return r
}
