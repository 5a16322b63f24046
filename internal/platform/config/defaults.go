package config

import "time"

// DefaultConfig returns the configuration used when no file is present.
// The auth constants mirror the product policy: a half-day session so the
// user sees the sign-in page at the start of the next work day, a 15 minute
// inactivity budget, and a one minute expiry warning.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			StaticDir:     "./web",
			WebsocketPath: "/notification/connect",
		},
		Auth: AuthConfig{
			SessionTTL:    12 * time.Hour,
			RefreshWindow: 15 * time.Minute,
			MaxInactivity: 15 * time.Minute,
			OTP: OTPConfig{
				Digits: 6,
				Period: 30,
			},
			Store: StoreConfig{
				Driver: "memory",
				Memory: MemoryStoreConfig{
					GCInterval: 5 * time.Minute,
				},
			},
		},
		Notify: NotifyConfig{
			InactivityBudget: 15 * time.Minute,
			WarningLead:      time.Minute,
		},
		Storage: StorageConfig{
			DSN: "data/boss.db",
		},
	}
}
