package config

import (
	"fmt"
	"strings"
	"time"
)

// NATSConfig holds the broker address and the dial timeout shared by the
// publisher and the subscriber side.
type NATSConfig struct {
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// String renders the section for the startup configuration dump.
func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if c.Url == "" {
		return fmt.Errorf("nats url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
