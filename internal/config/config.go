package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"notifer/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains connection settings for the notification endpoint.
type API struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	ProxyURL       string `toml:"proxy_url"`
	UserAgent      string `toml:"user_agent"`
}

// Credentials selects where topic tokens are looked up.
type Credentials struct {
	// Backend is one of "keyring", "file" or "env".
	Backend        string `toml:"backend"`
	KeyringService string `toml:"keyring_service"`
	File           string `toml:"file"`
	// Fallback consults NOTIFER_TOKEN_<ID> variables after the primary backend.
	EnvFallback bool `toml:"env_fallback"`
}

// Notify holds the per-outcome switches and failure policy defaults.
type Notify struct {
	OnSuccess   bool `toml:"on_success"`
	OnFailure   bool `toml:"on_failure"`
	OnUnstable  bool `toml:"on_unstable"`
	OnAborted   bool `toml:"on_aborted"`
	FailOnError bool `toml:"fail_on_error"`
	// DefaultPriority is used when a caller does not pass one. Zero derives
	// the priority from the build outcome.
	DefaultPriority int      `toml:"default_priority"`
	DefaultTags     []string `toml:"default_tags"`
}

// Expansion controls placeholder substitution.
type Expansion struct {
	// Strict rejects templates that reference unknown variables instead of
	// leaving the placeholder in place.
	Strict bool `toml:"strict"`
}

// History contains configuration for the local dispatch log.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	// RetentionDays prunes older entries when the log is opened. Zero keeps
	// everything.
	RetentionDays int `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// File additionally receives every record as JSON when set.
	File string `toml:"file"`
}

// Config encapsulates all configuration values for notifer.
//
// Configuration sections by subsystem:
//   - API: endpoint base URL, timeout, proxy
//   - Credentials: token store backend
//   - Notify: per-outcome switches, fail policy, default priority and tags
//   - Expansion: placeholder handling
//   - History: SQLite dispatch log
//   - Logging: log format and level
type Config struct {
	API         API         `toml:"api"`
	Credentials Credentials `toml:"credentials"`
	Notify      Notify      `toml:"notify"`
	Expansion   Expansion   `toml:"expansion"`
	History     History     `toml:"history"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("notifer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories backing file-based state.
func (c *Config) EnsureDirectories() error {
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		dir := filepath.Dir(c.History.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		dir := filepath.Dir(c.Logging.File)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the transport timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.API.RequestTimeout <= 0 {
		return defaultRequestTimeout * time.Second
	}
	return time.Duration(c.API.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
