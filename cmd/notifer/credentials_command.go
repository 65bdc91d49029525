package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"notifer/internal/config"
	"notifer/internal/credentials"
)

func newCredentialsCommand(ctx *commandContext) *cobra.Command {
	credCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage topic tokens",
	}
	credCmd.AddCommand(newCredentialsSetCommand(ctx))
	credCmd.AddCommand(newCredentialsCheckCommand(ctx))
	return credCmd
}

func newCredentialsSetCommand(ctx *commandContext) *cobra.Command {
	var id, scope, secret string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a topic token in the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if fromStdin {
				secret, err = readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			if strings.TrimSpace(secret) == "" {
				return errors.New("a token is required (use --token or --token-stdin)")
			}

			cred := credentials.Credential{ID: id, Secret: secret, Scope: credentials.NormalizeScope(scope)}
			switch cfg.Credentials.Backend {
			case config.BackendKeyring:
				err = credentials.NewKeyringStore(cfg.Credentials.KeyringService).Put(cred)
			case config.BackendFile:
				err = credentials.NewFileStore(cfg.Credentials.File).Put(cmd.Context(), cred)
			default:
				return fmt.Errorf("credentials backend %q is read-only; export %s instead", cfg.Credentials.Backend, credentials.EnvVarName(id))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored credential %s (scope %s) in %s backend\n", strings.TrimSpace(id), cred.Scope, cfg.Credentials.Backend)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Credential id")
	cmd.Flags().StringVar(&scope, "scope", "", "Scope the credential is visible from (default global)")
	cmd.Flags().StringVar(&secret, "token", "", "Topic token")
	cmd.Flags().BoolVar(&fromStdin, "token-stdin", false, "Read the topic token from stdin")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newCredentialsCheckCommand(ctx *commandContext) *cobra.Command {
	var id, scope string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify a credential resolves from a scope without printing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnvironment(nil, nil)
			if err != nil {
				return err
			}
			logger, closeLog := ctx.logger(cmd)
			defer closeLog()
			resolver, err := ctx.resolver(env, logger)
			if err != nil {
				return err
			}
			callerScope := credentials.NormalizeScope(scope)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			secret, err := resolver.Resolve(cmd.Context(), id, callerScope)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine(strings.TrimSpace(id), statusError,
					strings.ReplaceAll(err.Error(), "\n", "; "), colorize))
				return err
			}
			fmt.Fprintln(out, renderStatusLine(strings.TrimSpace(id), statusOK,
				fmt.Sprintf("resolved from scope %s (%d characters)", callerScope, len(secret)), colorize))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Credential id")
	cmd.Flags().StringVar(&scope, "scope", "", "Caller scope to resolve from")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
