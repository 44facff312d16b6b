package banklink

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-banklink/core"
	"github.com/goliatone/go-banklink/dwolla"
	"github.com/goliatone/go-banklink/identity"
	"github.com/goliatone/go-banklink/plaid"
	sqlstore "github.com/goliatone/go-banklink/store/sql"
	"github.com/goliatone/go-config/cfgx"
)

type SecurityConfig struct {
	AppKey         string `koanf:"app_key" mapstructure:"app_key"`
	KeyID          string `koanf:"key_id" mapstructure:"key_id"`
	KeyVersion     int    `koanf:"key_version" mapstructure:"key_version"`
	ShareableIDKey string `koanf:"shareable_id_key" mapstructure:"shareable_id_key"`
}

// ShareableKey falls back to the application key.
func (c SecurityConfig) ShareableKey() string {
	if key := strings.TrimSpace(c.ShareableIDKey); key != "" {
		return key
	}
	return c.AppKey
}

type CacheConfig struct {
	Enabled bool          `koanf:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `koanf:"ttl" mapstructure:"ttl"`
}

type RecoveryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay" mapstructure:"max_delay"`
	SweepLimit  int           `koanf:"sweep_limit" mapstructure:"sweep_limit"`
}

// AppConfig is the full configuration tree for a wired runtime.
type AppConfig struct {
	Banklink core.Config             `koanf:"banklink" mapstructure:"banklink"`
	Plaid    plaid.Config            `koanf:"plaid" mapstructure:"plaid"`
	Dwolla   dwolla.Config           `koanf:"dwolla" mapstructure:"dwolla"`
	Identity identity.Config         `koanf:"identity" mapstructure:"identity"`
	Database sqlstore.DatabaseConfig `koanf:"database" mapstructure:"database"`
	Security SecurityConfig          `koanf:"security" mapstructure:"security"`
	Cache    CacheConfig             `koanf:"cache" mapstructure:"cache"`
	Recovery RecoveryConfig          `koanf:"recovery" mapstructure:"recovery"`
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		Banklink: core.DefaultConfig(),
		Plaid:    plaid.DefaultConfig(),
		Dwolla:   dwolla.DefaultConfig(),
		Identity: identity.Config{
			AccountPath:    "/account",
			SessionHeader:  "X-Session",
			RequestTimeout: 10 * time.Second,
		},
		Database: sqlstore.DefaultDatabaseConfig(),
		Security: SecurityConfig{KeyID: "app-key", KeyVersion: 1},
		Cache:    CacheConfig{Enabled: true, TTL: 5 * time.Minute},
		Recovery: RecoveryConfig{
			MaxAttempts: 5,
			BaseDelay:   30 * time.Second,
			MaxDelay:    15 * time.Minute,
			SweepLimit:  100,
		},
	}
}

func (c AppConfig) Validate() error {
	if err := c.Banklink.Validate(); err != nil {
		return err
	}
	if err := c.Plaid.Validate(); err != nil {
		return err
	}
	if err := c.Dwolla.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Identity.Endpoint) == "" {
		return fmt.Errorf("banklink: identity.endpoint is required")
	}
	if strings.TrimSpace(c.Database.Driver) == "" {
		return fmt.Errorf("banklink: database.driver is required")
	}
	if strings.TrimSpace(c.Security.AppKey) == "" {
		return fmt.Errorf("banklink: security.app_key is required")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("banklink: cache.ttl must be positive when the cache is enabled")
	}
	return nil
}

// LoadConfig decodes a raw configuration tree on top of DefaultAppConfig.
func LoadConfig(raw map[string]any) (AppConfig, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	return cfgx.Build[AppConfig](raw,
		cfgx.WithDefaults(DefaultAppConfig()),
		cfgx.WithValidator[AppConfig]((*AppConfig).Validate),
	)
}
