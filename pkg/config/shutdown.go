package config

import (
	"fmt"
	"strings"
	"time"
)

// ShutdownConfig bounds how long a draining server may hold up process
// exit once a stop signal arrives.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// String renders the section for the startup configuration dump.
func (c *ShutdownConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Shutdown ---\n")
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
