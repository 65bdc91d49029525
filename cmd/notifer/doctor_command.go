package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"notifer/internal/credentials"
	"notifer/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var credentialsID, scope string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check endpoint reachability, credentials and local paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := preflight.Options{CredentialID: credentialsID, Scope: credentials.NormalizeScope(scope)}
			if credentialsID != "" {
				env, err := buildEnvironment(nil, nil)
				if err != nil {
					return err
				}
				logger, closeLog := ctx.logger(cmd)
				defer closeLog()
				if opts.Resolver, err = ctx.resolver(env, logger); err != nil {
					return err
				}
			}

			results := preflight.RunAll(cmd.Context(), cfg, opts)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialsID, "credentials-id", "", "Also verify this credential resolves")
	cmd.Flags().StringVar(&scope, "scope", "", "Caller scope for --credentials-id")
	return cmd
}
