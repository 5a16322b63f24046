package config

import "time"

// Config is the root server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Web     WebConfig     `yaml:"web"`
	Auth    AuthConfig    `yaml:"auth"`
	Notify  NotifyConfig  `yaml:"notify"`
	Storage StorageConfig `yaml:"storage"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	StaticDir     string `yaml:"static_dir"`
	WebsocketPath string `yaml:"websocket_path"`
}

// AuthConfig carries the session policy constants. These are policy values,
// not tuning knobs: the defaults mirror the product's security posture.
type AuthConfig struct {
	// HMACSecret signs access tokens. Required; startup fails without it.
	HMACSecret string `yaml:"hmac_secret"`

	// AdminPassword seeds the administrator account when the database is
	// first created. Required; without it a fresh deployment would hold no
	// account that can sign in.
	AdminPassword string `yaml:"admin_password"`

	// SessionTTL is the total lifetime of an access token.
	SessionTTL time.Duration `yaml:"session_ttl"`
	// RefreshWindow is the trailing portion of SessionTTL during which a
	// verification with refresh enabled mints a replacement token.
	RefreshWindow time.Duration `yaml:"refresh_window"`
	// MaxInactivity is the longest a signed-in user may stay idle before
	// token verification starts failing.
	MaxInactivity time.Duration `yaml:"max_inactivity"`

	OTP   OTPConfig   `yaml:"otp"`
	Store StoreConfig `yaml:"store"`
}

type OTPConfig struct {
	Digits int `yaml:"digits"`
	Period int `yaml:"period"`
}

// StoreConfig selects the session-state store backend.
type StoreConfig struct {
	Driver string            `yaml:"driver"`
	Memory MemoryStoreConfig `yaml:"memory,omitempty"`
	Redis  RedisStoreConfig  `yaml:"redis,omitempty"`
}

type MemoryStoreConfig struct {
	GCInterval time.Duration `yaml:"gc_interval"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// NotifyConfig carries the realtime connection expiry policy.
type NotifyConfig struct {
	// InactivityBudget is the total silent duration allowed on a realtime
	// connection before it is force-closed.
	InactivityBudget time.Duration `yaml:"inactivity_budget"`
	// WarningLead is the trailing portion of InactivityBudget during which
	// the client has been warned but not yet disconnected.
	WarningLead time.Duration `yaml:"warning_lead"`
}

type StorageConfig struct {
	DSN string `yaml:"dsn"`
}
