package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/securecookie"
)

const (
	EnvPrefix = "ROLEGATE_"

	MinSessionSecretLength = 32
)

type Config struct {
	Port          int    `env:"PORT" envDefault:"8090"`
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`
	SessionSecret string `env:"SESSION_SECRET"`
	SessionMaxAge int    `env:"SESSION_MAX_AGE" envDefault:"86400"` // 24 hours
	SecureCookie  bool   `env:"SECURE_COOKIE" envDefault:"false"`

	// Admin routes are only reachable from these addresses. Entries may be
	// single IPs or CIDR ranges.
	AdminAllowedIPs []string `env:"ADMIN_ALLOWED_IPS" envSeparator:"," envDefault:"127.0.0.1,::1"`
	// TrustProxy honours X-Forwarded-For / X-Real-IP when resolving the client IP.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"Asia/Kolkata"`
	AuditLogLimit   int    `env:"AUDIT_LOG_LIMIT" envDefault:"50"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	AccessLogPath string `env:"ACCESS_LOG_PATH" envDefault:"logs/access.log"`

	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" envDefault:"1"`
	LoginBurst     int     `env:"LOGIN_BURST" envDefault:"10"`

	DefaultAdmin    string `env:"DEFAULT_ADMIN"`
	DefaultPassword string `env:"DEFAULT_PASSWORD"`

	location *time.Location
}

// Load reads the configuration from ROLEGATE_* environment variables.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: EnvPrefix})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment. Keys are expected without the ROLEGATE_ prefix.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.SessionSecret == "" {
		slog.Warn("ROLEGATE_SESSION_SECRET is not set; sessions will not survive a restart")
		cfg.SessionSecret = string(securecookie.GenerateRandomKey(MinSessionSecretLength))
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.SessionSecret != "" && len(c.SessionSecret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("%sSESSION_SECRET must be at least %d bytes, got %d",
			EnvPrefix, MinSessionSecretLength, len(c.SessionSecret)))
	}

	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid %sDISPLAY_TIMEZONE %q: %w", EnvPrefix, c.DisplayTimezone, err))
	}
	c.location = loc

	if c.AuditLogLimit <= 0 {
		errs = append(errs, fmt.Errorf("%sAUDIT_LOG_LIMIT must be positive", EnvPrefix))
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("%sSESSION_MAX_AGE must be positive", EnvPrefix))
	}
	if c.LoginRateLimit < 0 || c.LoginBurst < 0 {
		errs = append(errs, fmt.Errorf("%sLOGIN_RATE_LIMIT and %sLOGIN_BURST must not be negative", EnvPrefix, EnvPrefix))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location returns the display timezone. Timestamps are stored in UTC.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// SessionDir is where server-side session files are kept.
func (c *Config) SessionDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid %sLOG_LEVEL %q", EnvPrefix, c.LogLevel)
}

// EnsureDirs creates the data directory and the access log directory.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if c.AccessLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.AccessLogPath), 0o755); err != nil {
			return fmt.Errorf("failed to create log dir: %w", err)
		}
	}
	return nil
}
