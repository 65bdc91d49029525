package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"notifer/internal/config"
	"notifer/internal/credentials"
	"notifer/internal/dispatch"
	"notifer/internal/expand"
	"notifer/internal/logging"
	"notifer/internal/outcome"
	"notifer/internal/payload"
)

// buildResultEnv names the variable a pipeline exports with the build result.
const buildResultEnv = "BUILD_RESULT"

type sendOptions struct {
	credentialsID string
	scope         string
	topic         string
	message       string
	title         string
	priority      int
	tags          []string
	result        string
	failOnError   bool
	notify        notifyFlags
	envFiles      []string
	vars          []string
	jsonOutput    bool
}

type notifyFlags struct {
	success  bool
	failure  bool
	unstable bool
	aborted  bool
}

func newSendCommand(ctx *commandContext) *cobra.Command {
	var opts sendOptions

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a notification for a build outcome",
		Long: "Send a notification to a notifer topic.\n\n" +
			"Topic, message, title and tags may reference environment variables as ${NAME} or $NAME.\n" +
			"When --message or --title is omitted they are derived from the build outcome.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runSend(cmd, ctx, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.credentialsID, "credentials-id", "", "Credential holding the topic token")
	flags.StringVar(&opts.scope, "scope", "", "Caller scope used to select credentials, e.g. team/project")
	flags.StringVar(&opts.topic, "topic", "", "Destination topic")
	flags.StringVarP(&opts.message, "message", "m", "", "Message body (default derived from the outcome)")
	flags.StringVar(&opts.title, "title", "", "Message title (default derived from the outcome)")
	flags.IntVarP(&opts.priority, "priority", "p", 0, "Priority 1-5; 0 derives it from the outcome")
	flags.StringArrayVarP(&opts.tags, "tag", "t", nil, "Tag to attach (repeatable, at most 5 are sent)")
	flags.StringVar(&opts.result, "result", "", "Build result: SUCCESS, FAILURE, UNSTABLE or ABORTED (default $BUILD_RESULT, else SUCCESS)")
	flags.BoolVar(&opts.failOnError, "fail-on-error", false, "Fail when the notification cannot be delivered")
	flags.BoolVar(&opts.notify.success, "notify-success", true, "Notify on successful builds")
	flags.BoolVar(&opts.notify.failure, "notify-failure", true, "Notify on failed builds")
	flags.BoolVar(&opts.notify.unstable, "notify-unstable", true, "Notify on unstable builds")
	flags.BoolVar(&opts.notify.aborted, "notify-aborted", false, "Notify on aborted builds")
	flags.StringArrayVar(&opts.envFiles, "env-file", nil, "Dotenv file merged into the environment (repeatable)")
	flags.StringArrayVar(&opts.vars, "var", nil, "Extra variable as KEY=VALUE (repeatable)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the endpoint response as JSON")

	return cmd
}

func runSend(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, opts sendOptions) error {
	if strings.TrimSpace(opts.credentialsID) == "" {
		return fmt.Errorf("%w: --credentials-id is required", dispatch.ErrInvalidInvocation)
	}
	if strings.TrimSpace(opts.topic) == "" {
		return fmt.Errorf("%w: --topic is required", dispatch.ErrInvalidInvocation)
	}

	logger, closeLog := ctx.logger(cmd)
	defer closeLog()
	env, err := buildEnvironment(opts.envFiles, opts.vars)
	if err != nil {
		return err
	}
	result, err := resolveOutcome(opts.result, env)
	if err != nil {
		return fmt.Errorf("%w: %v", dispatch.ErrInvalidInvocation, err)
	}

	flags := cmd.Flags()
	priority := cfg.Notify.DefaultPriority
	if flags.Changed("priority") {
		priority = opts.priority
		if priority < outcome.AutoPriority || priority > outcome.MaxPriority {
			logging.WarnWithContext(logger, "priority out of range; clamping", "priority_clamped",
				"use 1-5, or 0 for automatic", slog.Int("priority", priority))
		}
	}
	failOnError := cfg.Notify.FailOnError
	if flags.Changed("fail-on-error") {
		failOnError = opts.failOnError
	}

	dispatcher, cleanup, err := ctx.newDispatcher(cmd.Context(), logger, env)
	if err != nil {
		return err
	}
	defer cleanup()

	inv := dispatch.Invocation{
		CredentialID: opts.credentialsID,
		Scope:        credentials.NormalizeScope(opts.scope),
		Topic:        opts.topic,
		Message:      opts.message,
		Title:        opts.title,
		Priority:     priority,
		Tags:         payload.MergeTags(opts.tags, cfg.Notify.DefaultTags),
		Outcome:      result,
		Policy:       notifyPolicy(flags.Changed, cfg.Notify, opts.notify),
		FailOnError:  failOnError,
		Env:          env,
		Output:       sinkWriter(cmd, opts.jsonOutput),
	}

	res, err := dispatcher.Dispatch(cmd.Context(), inv)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return writeJSON(cmd, sendReport(res))
	}
	return nil
}

// notifyPolicy prefers explicit flags over the [notify] section.
func notifyPolicy(changed func(string) bool, cfg config.Notify, flags notifyFlags) outcome.Policy {
	pick := func(name string, flagValue, cfgValue bool) bool {
		if changed(name) {
			return flagValue
		}
		return cfgValue
	}
	return outcome.Policy{
		OnSuccess:  pick("notify-success", flags.success, cfg.OnSuccess),
		OnFailure:  pick("notify-failure", flags.failure, cfg.OnFailure),
		OnUnstable: pick("notify-unstable", flags.unstable, cfg.OnUnstable),
		OnAborted:  pick("notify-aborted", flags.aborted, cfg.OnAborted),
	}
}

// buildEnvironment snapshots the process environment, then layers dotenv
// files and --var overrides on top.
func buildEnvironment(envFiles, vars []string) (expand.Snapshot, error) {
	env := expand.FromEnviron(os.Environ())
	if len(envFiles) > 0 {
		loaded, err := env.LoadDotenv(envFiles...)
		if err != nil {
			return expand.Snapshot{}, err
		}
		env = loaded
	}
	if len(vars) == 0 {
		return env, nil
	}
	overrides := make(map[string]string, len(vars))
	for _, kv := range vars {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return expand.Snapshot{}, fmt.Errorf("%w: --var %q must be KEY=VALUE", dispatch.ErrInvalidInvocation, kv)
		}
		overrides[key] = value
	}
	return env.With(overrides), nil
}

func resolveOutcome(flagValue string, env expand.Snapshot) (outcome.Outcome, error) {
	value := strings.TrimSpace(flagValue)
	if value == "" {
		value = strings.TrimSpace(env.Get(buildResultEnv))
	}
	if value == "" {
		return outcome.Success, nil
	}
	return outcome.Parse(value)
}

type sendJSON struct {
	InvocationID string   `json:"invocation_id"`
	State        string   `json:"state"`
	Sent         bool     `json:"sent"`
	ID           string   `json:"id,omitempty"`
	Topic        string   `json:"topic,omitempty"`
	Message      string   `json:"message,omitempty"`
	Priority     int      `json:"priority,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func sendReport(res dispatch.Result) sendJSON {
	report := sendJSON{
		InvocationID: res.InvocationID,
		State:        res.State.String(),
		Sent:         res.Response != nil,
	}
	if res.Response != nil {
		report.ID = res.Response.ID
		report.Topic = res.Response.Topic
		report.Message = res.Response.Message
		report.Priority = res.Response.Priority
		report.Tags = res.Response.Tags
	}
	if res.Err != nil {
		report.Error = res.Err.Error()
	}
	return report
}
