package config

import (
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration is the client-specific part of the configuration.
type ApplicationConfiguration struct {
	Logger `yaml:",inline"`

	RPC        RPC          `yaml:"RPC"`
	Prometheus BasicService `yaml:"Prometheus"`
}

// Logger contains node logger configuration.
type Logger struct {
	LogEncoding string `yaml:"LogEncoding"`
	LogLevel    string `yaml:"LogLevel"`
	LogPath     string `yaml:"LogPath"`
}

// RPC is the node connection configuration.
type RPC struct {
	Endpoint        string        `yaml:"Endpoint"`
	DialTimeout     time.Duration `yaml:"DialTimeout"`
	RequestTimeout  time.Duration `yaml:"RequestTimeout"`
	MaxConnsPerHost int           `yaml:"MaxConnsPerHost"`
	// InstanceCacheSize is the number of block-pinned instance states kept
	// in memory.
	InstanceCacheSize int `yaml:"InstanceCacheSize"`
}

// Validate checks ApplicationConfiguration for internal consistency and
// returns an error if any invalid settings are found.
func (a *ApplicationConfiguration) Validate() error {
	if err := a.Logger.Validate(); err != nil {
		return err
	}
	if a.RPC.Endpoint != "" {
		u, err := url.Parse(a.RPC.Endpoint)
		if err != nil {
			return fmt.Errorf("invalid RPC endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid RPC endpoint scheme %q", u.Scheme)
		}
	}
	if a.RPC.DialTimeout < 0 || a.RPC.RequestTimeout < 0 {
		return fmt.Errorf("negative RPC timeout")
	}
	if a.RPC.InstanceCacheSize < 0 {
		return fmt.Errorf("negative InstanceCacheSize: %d", a.RPC.InstanceCacheSize)
	}
	if a.Prometheus.Enabled && len(a.Prometheus.Addresses) == 0 {
		return fmt.Errorf("Prometheus is enabled, but no Addresses are set")
	}
	return nil
}

// Validate returns an error if Logger configuration is not valid.
func (l Logger) Validate() error {
	if len(l.LogLevel) > 0 {
		if _, err := zapcore.ParseLevel(l.LogLevel); err != nil {
			return fmt.Errorf("log setting: %w", err)
		}
	}
	switch l.LogEncoding {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid LogEncoding: %s", l.LogEncoding)
	}
	return nil
}
