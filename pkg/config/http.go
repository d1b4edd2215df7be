package config

import (
	"fmt"
	"time"
)

// HTTPConfig holds the listener port and the per-phase timeouts of the API
// server. Every timeout must be set; an unset timeout would mean no limit.
type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxHeaderBytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("http port %d is out of range", c.Port)
	}
	for _, timeout := range []struct {
		name  string
		value time.Duration
	}{
		{"read", c.Timeout.Read},
		{"write", c.Timeout.Write},
		{"idle", c.Timeout.Idle},
		{"readHeader", c.Timeout.ReadHeader},
	} {
		if timeout.value <= 0 {
			return fmt.Errorf("http %s timeout must be positive, got %v", timeout.name, timeout.value)
		}
	}
	return nil
}
