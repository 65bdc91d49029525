package main

import (
	"github.com/spf13/cobra"

	"notifer/internal/credentials"
	"notifer/internal/dispatch"
	"notifer/internal/outcome"
)

const (
	testNotifyTitle   = "Notifer Test"
	testNotifyMessage = "Test notification from notifer. Delivery is working."
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var credentialsID, topic, scope string

	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := ctx.logger(cmd)
			defer closeLog()
			env, err := buildEnvironment(nil, nil)
			if err != nil {
				return err
			}
			dispatcher, cleanup, err := ctx.newDispatcher(cmd.Context(), logger, env)
			if err != nil {
				return err
			}
			defer cleanup()

			_, err = dispatcher.Dispatch(cmd.Context(), dispatch.Invocation{
				CredentialID: credentialsID,
				Scope:        credentials.NormalizeScope(scope),
				Topic:        topic,
				Message:      testNotifyMessage,
				Title:        testNotifyTitle,
				Priority:     outcome.PriorityForAuto(outcome.Success),
				Tags:         []string{"test"},
				Outcome:      outcome.Success,
				Policy:       outcome.Policy{OnSuccess: true},
				FailOnError:  true,
				Env:          env,
				Output:       cmd.OutOrStdout(),
			})
			return err
		},
	}

	cmd.Flags().StringVar(&credentialsID, "credentials-id", "", "Credential holding the topic token")
	cmd.Flags().StringVar(&topic, "topic", "", "Destination topic")
	cmd.Flags().StringVar(&scope, "scope", "", "Caller scope used to select credentials")
	_ = cmd.MarkFlagRequired("credentials-id")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
