package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig holds the PostgreSQL connection settings for the record
// and account storage.
type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if !hasPostgresScheme(c.URL) {
		return fmt.Errorf("database url must use a postgres:// or postgresql:// scheme, got %q", c.URL)
	}
	return nil
}

func hasPostgresScheme(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}
