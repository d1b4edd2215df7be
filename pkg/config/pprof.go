package config

import (
	"fmt"
	"strings"
)

// PProfConfig controls the optional profiling endpoint. It listens on its
// own address so the profiler never shares a port with the API.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// String renders the section for the startup configuration dump.
func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  address: %s\n", c.Addr))
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("pprof address is required when pprof is enabled")
	}
	return nil
}
