package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"notifer/internal/config"
	"notifer/internal/credentials"
	"notifer/internal/dispatch"
	"notifer/internal/expand"
	"notifer/internal/history"
	"notifer/internal/logging"
	"notifer/internal/notifications"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// logger builds the command logger on stderr. The returned function closes
// the optional log file.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, func()) {
	cfg, _ := c.ensureConfig()
	logger, closeLog, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "notifer: logging disabled: %v\n", err)
		return logging.NewNop(), func() {}
	}
	return logging.NewComponentLogger(logger, "cli"), func() { _ = closeLog() }
}

// resolver builds the lookup chain for the configured backend. env supplies
// the NOTIFER_TOKEN_* fallback, which is still consulted when the configured
// store cannot be read.
func (c *commandContext) resolver(env expand.Snapshot, logger *slog.Logger) (credentials.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	envStore := credentials.NewEnvStore(env.Lookup)

	var primary credentials.Resolver
	switch cfg.Credentials.Backend {
	case config.BackendKeyring:
		primary = credentials.NewKeyringStore(cfg.Credentials.KeyringService)
	case config.BackendFile:
		primary = credentials.NewFileStore(cfg.Credentials.File)
	case config.BackendEnv:
		return envStore, nil
	default:
		return nil, fmt.Errorf("credentials.backend: unsupported value %q", cfg.Credentials.Backend)
	}
	if !cfg.Credentials.EnvFallback {
		return primary, nil
	}
	return credentials.NewChain(logger, primary, envStore), nil
}

// newDispatcher wires a dispatcher for one command run. The returned cleanup
// closes the history store when one was opened.
func (c *commandContext) newDispatcher(ctx context.Context, logger *slog.Logger, env expand.Snapshot) (*dispatch.Dispatcher, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	resolver, err := c.resolver(env, logger)
	if err != nil {
		return nil, nil, err
	}
	client, err := notifications.NewClientFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithStrictExpansion(cfg.Expansion.Strict),
	}
	cleanup := func() {}
	store, err := history.OpenFromConfig(ctx, cfg)
	switch {
	case errors.Is(err, history.ErrDisabled):
	case err != nil:
		logging.WarnWithContext(logger, "history unavailable; continuing without it", "history_open",
			"check history.path or set history.enabled = false", logging.Error(err))
	default:
		opts = append(opts, dispatch.WithRecorder(store))
		cleanup = func() { _ = store.Close() }
	}

	return dispatch.New(resolver, client, opts...), cleanup, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// sinkWriter returns where dispatch progress lines go. JSON output keeps
// stdout machine readable, so progress moves to stderr.
func sinkWriter(cmd *cobra.Command, jsonOutput bool) io.Writer {
	if jsonOutput {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
