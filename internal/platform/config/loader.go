package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"boss-server-go/internal/platform/errors"
)

// DefaultPath is consulted when no explicit config path is given.
const DefaultPath = "config.yaml"

// Loader reads configuration from an optional yaml file layered over the
// defaults, then applies environment overrides.
type Loader struct {
	path      string
	useDotEnv bool
}

func NewLoader() *Loader {
	return &Loader{
		path:      DefaultPath,
		useDotEnv: true,
	}
}

// WithPath overrides the yaml file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Result captures the loaded configuration and its origin path. Path is empty
// when the configuration came entirely from defaults and environment.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration. A missing yaml file is not an
// error; a malformed one is.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// Best effort. Absent .env means plain environment variables.
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path := ""

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "load", "parse "+l.path, err)
		}
		path = l.path
	case os.IsNotExist(err):
		// Defaults plus environment only.
	default:
		return nil, errors.Wrap(errors.KindConfig, "load", "read "+l.path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

// applyEnv layers BOSS_* environment variables over the file values. Secrets
// are expected to arrive this way rather than through the yaml file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("BOSS_SERVER_IP"); v != "" {
		cfg.Server.IP = v
	}
	if v := os.Getenv("BOSS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BOSS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BOSS_AUTH_HMAC_SECRET"); v != "" {
		cfg.Auth.HMACSecret = v
	}
	if v := os.Getenv("BOSS_AUTH_ADMIN_PASSWORD"); v != "" {
		cfg.Auth.AdminPassword = v
	}
	if v := os.Getenv("BOSS_AUTH_STORE_DRIVER"); v != "" {
		cfg.Auth.Store.Driver = v
	}
	if v := os.Getenv("BOSS_REDIS_ADDR"); v != "" {
		cfg.Auth.Store.Redis.Addr = v
	}
	if v := os.Getenv("BOSS_REDIS_PASSWORD"); v != "" {
		cfg.Auth.Store.Redis.Password = v
	}
	if v := os.Getenv("BOSS_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// Validate rejects configurations the server cannot safely run with.
func (c *Config) Validate() error {
	if c.Auth.HMACSecret == "" {
		return errors.New(errors.KindConfig, "validate", "auth.hmac_secret is required")
	}
	if c.Auth.AdminPassword == "" {
		return errors.New(errors.KindConfig, "validate", "auth.admin_password is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New(errors.KindConfig, "validate", "auth.session_ttl must be positive")
	}
	if c.Auth.RefreshWindow <= 0 || c.Auth.RefreshWindow > c.Auth.SessionTTL {
		return errors.New(errors.KindConfig, "validate", "auth.refresh_window must be positive and not exceed session_ttl")
	}
	if c.Auth.MaxInactivity <= 0 {
		return errors.New(errors.KindConfig, "validate", "auth.max_inactivity must be positive")
	}
	if c.Notify.InactivityBudget <= 0 {
		return errors.New(errors.KindConfig, "validate", "notify.inactivity_budget must be positive")
	}
	if c.Notify.WarningLead <= 0 || c.Notify.WarningLead >= c.Notify.InactivityBudget {
		return errors.New(errors.KindConfig, "validate", "notify.warning_lead must be positive and shorter than inactivity_budget")
	}
	switch c.Auth.Store.Driver {
	case "memory":
	case "redis":
		if c.Auth.Store.Redis.Addr == "" {
			return errors.New(errors.KindConfig, "validate", "auth.store.redis.addr is required for the redis driver")
		}
	default:
		return errors.New(errors.KindConfig, "validate", "unknown auth.store.driver: "+c.Auth.Store.Driver)
	}
	return nil
}

// Address joins the listen IP and port.
func (c *Config) Address() string {
	return c.Server.IP + ":" + strconv.Itoa(c.Server.Port)
}

// WarnAfter is the silent duration before a realtime connection is warned.
func (c *NotifyConfig) WarnAfter() time.Duration {
	return c.InactivityBudget - c.WarningLead
}
