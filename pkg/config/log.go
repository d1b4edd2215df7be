package config

import (
	"fmt"
	"strings"
)

// LogConfig selects the minimum slog level. Unknown values fall back to
// info at logger construction, so there is nothing to validate here.
type LogConfig struct {
	Level string `koanf:"level"`
}

// String renders the section for the startup configuration dump.
func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Level))
	return b.String()
}

func (c *LogConfig) Validate() error {
	return nil
}
