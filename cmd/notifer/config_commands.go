package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"notifer/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Store a topic token with `notifer credentials set` before sending.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Config path", statusInfo, ctx.configPath, colorize))
			if !ctx.configExists {
				fmt.Fprintln(out, renderStatusLine("Config file", statusWarn, "not found; defaults were used", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Endpoint", statusOK, cfg.API.BaseURL, colorize))
			if cfg.API.ProxyURL != "" {
				fmt.Fprintln(out, renderStatusLine("Proxy", statusInfo, cfg.API.ProxyURL, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Credentials", statusOK, credentialBackendSummary(cfg), colorize))
			if cfg.History.Enabled {
				fmt.Fprintln(out, renderStatusLine("History", statusOK, cfg.History.Path, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("History", statusInfo, "disabled", colorize))
			}
			if cfg.Notify.DefaultPriority == 0 {
				fmt.Fprintln(out, renderStatusLine("Default priority", statusInfo, "auto", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Default priority", statusInfo, fmt.Sprint(cfg.Notify.DefaultPriority), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Fail on error", statusInfo, yesNo(cfg.Notify.FailOnError), colorize))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			encoded, err := cfg.Encode()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", ctx.configPath, encoded)
			return nil
		},
	}
}

func credentialBackendSummary(cfg *config.Config) string {
	var summary string
	switch cfg.Credentials.Backend {
	case config.BackendKeyring:
		summary = "keyring (service " + cfg.Credentials.KeyringService + ")"
	case config.BackendFile:
		summary = "file " + cfg.Credentials.File
	default:
		summary = cfg.Credentials.Backend
	}
	if cfg.Credentials.EnvFallback && cfg.Credentials.Backend != config.BackendEnv {
		summary += ", env fallback"
	}
	return summary
}
