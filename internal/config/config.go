package config

import "time"

// Config is the root configuration for syncboard.
type Config struct {
	Gateway  GatewayConfig  `json:"gateway"`
	Store    StoreConfig    `json:"store"`
	Events   EventsConfig   `json:"events"`
	Identity IdentityConfig `json:"identity"`
	Client   ClientConfig   `json:"client"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string `json:"driver"` // "memory" or "sqlite"
	Path   string `json:"path"`   // sqlite file, ignored for memory
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// IdentityConfig holds session lifecycle settings.
// A zero SessionTTL disables expiry.
type IdentityConfig struct {
	SessionTTL Duration `json:"session_ttl,omitempty"`
	SweepCron  string   `json:"sweep_cron,omitempty"`
}

// ClientConfig holds reconnect settings for the watch client.
type ClientConfig struct {
	BaseDelay   Duration `json:"base_delay,omitempty"`
	MaxAttempts int      `json:"max_attempts,omitempty"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
