package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultPipelineTimeout = 30 * time.Second
	defaultLinkLockTTL     = 45 * time.Second
	defaultPublicTokenTTL  = 30 * time.Minute
)

type LinkConfig struct {
	Products     []string `koanf:"products" mapstructure:"products"`
	CountryCodes []string `koanf:"country_codes" mapstructure:"country_codes"`
	Language     string   `koanf:"language" mapstructure:"language"`
	Processor    string   `koanf:"processor" mapstructure:"processor"`
}

type Config struct {
	ServiceName     string        `koanf:"service_name" mapstructure:"service_name"`
	PipelineTimeout time.Duration `koanf:"pipeline_timeout" mapstructure:"pipeline_timeout"`
	LinkLockTTL     time.Duration `koanf:"link_lock_ttl" mapstructure:"link_lock_ttl"`
	PublicTokenTTL  time.Duration `koanf:"public_token_ttl" mapstructure:"public_token_ttl"`
	Link            LinkConfig    `koanf:"link" mapstructure:"link"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:     "banklink",
		PipelineTimeout: defaultPipelineTimeout,
		LinkLockTTL:     defaultLinkLockTTL,
		PublicTokenTTL:  defaultPublicTokenTTL,
		Link: LinkConfig{
			Products:     []string{ProductAuth},
			CountryCodes: []string{CountryCodeUS},
			Language:     DefaultLanguage,
			Processor:    ProcessorDwolla,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("core: pipeline_timeout must be positive")
	}
	if c.LinkLockTTL < c.PipelineTimeout {
		return fmt.Errorf("core: link_lock_ttl must not be shorter than pipeline_timeout")
	}
	if c.PublicTokenTTL <= 0 {
		return fmt.Errorf("core: public_token_ttl must be positive")
	}
	if len(c.Link.Products) == 0 {
		return fmt.Errorf("core: link.products is required")
	}
	if len(c.Link.CountryCodes) == 0 {
		return fmt.Errorf("core: link.country_codes is required")
	}
	if strings.TrimSpace(c.Link.Language) == "" {
		return fmt.Errorf("core: link.language is required")
	}
	if strings.TrimSpace(c.Link.Processor) != ProcessorDwolla {
		return fmt.Errorf("core: link.processor %q is invalid, only %q is supported", c.Link.Processor, ProcessorDwolla)
	}
	return nil
}
