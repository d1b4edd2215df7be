package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/storeledger/storeledger/pkg/config"
	"github.com/storeledger/storeledger/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// TelegramConfig holds the Bot API credentials.
type TelegramConfig struct {
	APIBase string        `koanf:"apiBase"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *TelegramConfig) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("telegram.apiBase must be set")
	}
	if c.Token == "" {
		return fmt.Errorf("telegram.token must be set")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("telegram.timeout must be positive")
	}
	return nil
}

type Config struct {
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Telegram   TelegramConfig          `koanf:"telegram"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.Nats.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString(fmt.Sprintf("  telegram.apiBase: %s\n", c.Telegram.APIBase))
	b.WriteString("  telegram.token: ****\n")
	b.WriteString(fmt.Sprintf("  telegram.timeout: %s\n", c.Telegram.Timeout))
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Subscriber.Validate(); err != nil {
		return err
	}
	if err := c.Telegram.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}

	return nil
}
