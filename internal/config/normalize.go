package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizeCredentials(); err != nil {
		return err
	}
	c.normalizeNotify()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	if err := c.normalizeLogFile(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.BaseURL = strings.TrimSpace(c.API.BaseURL)
	if value, ok := os.LookupEnv("NOTIFER_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.API.BaseURL = strings.TrimSpace(value)
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = defaultRequestTimeout
	}
	c.API.ProxyURL = strings.TrimSpace(c.API.ProxyURL)
	if c.API.ProxyURL == "" {
		if value, ok := os.LookupEnv("NOTIFER_PROXY_URL"); ok {
			c.API.ProxyURL = strings.TrimSpace(value)
		}
	}
	c.API.UserAgent = strings.TrimSpace(c.API.UserAgent)
	if c.API.UserAgent == "" {
		c.API.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeCredentials() error {
	c.Credentials.Backend = strings.ToLower(strings.TrimSpace(c.Credentials.Backend))
	if c.Credentials.Backend == "" {
		c.Credentials.Backend = defaultBackend
	}
	c.Credentials.KeyringService = strings.TrimSpace(c.Credentials.KeyringService)
	if c.Credentials.KeyringService == "" {
		c.Credentials.KeyringService = defaultKeyringService
	}
	if value, ok := os.LookupEnv("NOTIFER_CREDENTIALS_FILE"); ok && strings.TrimSpace(value) != "" {
		c.Credentials.File = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Credentials.File) == "" {
		c.Credentials.File = defaultCredentialsFile
	}
	var err error
	if c.Credentials.File, err = expandPath(c.Credentials.File); err != nil {
		return fmt.Errorf("credentials.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotify() {
	if len(c.Notify.DefaultTags) == 0 {
		return
	}
	tags := make([]string, 0, len(c.Notify.DefaultTags))
	for _, tag := range c.Notify.DefaultTags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	c.Notify.DefaultTags = tags
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeLogFile() error {
	file := strings.TrimSpace(c.Logging.File)
	if file == "" {
		c.Logging.File = ""
		return nil
	}
	var err error
	if c.Logging.File, err = expandPath(file); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
