package testsupport

import (
	"path/filepath"
	"testing"

	"notifer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory. History
// lives under that directory and credentials default to the file backend so
// tests never touch the real keyring.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Credentials.Backend = config.BackendFile
	cfgVal.Credentials.File = filepath.Join(base, "credentials.toml")
	cfgVal.Credentials.EnvFallback = false
	cfgVal.History.Path = filepath.Join(base, "history", "history.db")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBaseURL points the client at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
	}
}

// WithBackend selects the credential backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Credentials.Backend = backend
	}
}

// WithoutHistory disables the dispatch log.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithFailOnError sets the default fail-on-error policy.
func WithFailOnError(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notify.FailOnError = enabled
	}
}
