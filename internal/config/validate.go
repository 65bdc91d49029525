package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if c.API.RequestTimeout <= 0 {
		return errors.New("api.request_timeout must be positive (seconds)")
	}
	if c.API.ProxyURL != "" {
		if err := validateHTTPURL("api.proxy_url", c.API.ProxyURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateCredentials() error {
	switch c.Credentials.Backend {
	case BackendKeyring:
		if c.Credentials.KeyringService == "" {
			return errors.New("credentials.keyring_service must be set when credentials.backend is keyring")
		}
	case BackendFile:
		if strings.TrimSpace(c.Credentials.File) == "" {
			return errors.New("credentials.file must be set when credentials.backend is file")
		}
	case BackendEnv:
	default:
		return fmt.Errorf("credentials.backend: unsupported value %q (want keyring, file or env)", c.Credentials.Backend)
	}
	return nil
}

func (c *Config) validateNotify() error {
	if c.Notify.DefaultPriority < 0 || c.Notify.DefaultPriority > 5 {
		return errors.New("notify.default_priority must be between 0 (auto) and 5")
	}
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be zero (keep forever) or positive")
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, value)
	}
	return nil
}
