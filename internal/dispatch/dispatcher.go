package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"notifer/internal/credentials"
	"notifer/internal/expand"
	"notifer/internal/logging"
	"notifer/internal/notifications"
	"notifer/internal/outcome"
	"notifer/internal/payload"
)

// LinePrefix starts every line written to an invocation's output sink.
const LinePrefix = "[Notifer]"

// Invocation is everything one notification needs from the host.
type Invocation struct {
	CredentialID string
	Scope        credentials.Scope

	Topic    string
	Message  string
	Title    string
	Priority int
	Tags     []string

	Outcome     outcome.Outcome
	Policy      outcome.Policy
	FailOnError bool

	Env expand.Snapshot
	// Output receives human-readable progress and error lines. Nil discards.
	Output io.Writer
}

// Result describes how an invocation ended.
type Result struct {
	InvocationID string
	State        State
	Request      *payload.Request
	Response     *notifications.Response
	// Err is the failure that ended the invocation, including suppressed
	// transport failures.
	Err error
	// Suppressed is set when a transport failure was logged instead of
	// returned because FailOnError was off.
	Suppressed bool
}

// Skipped reports whether the notify policy suppressed the notification.
func (r Result) Skipped() bool {
	return r.State == StateSkipped
}

// Recorder persists terminal results. Failures to record are logged and never
// affect the invocation.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Record is the history entry for one invocation. It never contains the token.
type Record struct {
	InvocationID string
	CredentialID string
	Topic        string
	Outcome      outcome.Outcome
	State        State
	Priority     int
	ResponseID   string
	StatusCode   int
	ErrorKind    string
	Error        string
	Suppressed   bool
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Dispatcher runs invocations. It holds no per-invocation state and is safe
// for concurrent use.
type Dispatcher struct {
	resolver credentials.Resolver
	sender   notifications.Sender
	expander expand.Expander
	recorder Recorder
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logging.NewComponentLogger(logger, "dispatch") }
}

// WithRecorder enables history recording.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithStrictExpansion rejects templates that reference unknown variables.
func WithStrictExpansion(strict bool) Option {
	return func(d *Dispatcher) { d.expander = expand.Expander{Strict: strict} }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithIDGenerator overrides invocation ID generation, for tests.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

// New returns a dispatcher that resolves tokens with resolver and delivers
// through sender.
func New(resolver credentials.Resolver, sender notifications.Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		sender:   sender,
		logger:   logging.NewComponentLogger(nil, "dispatch"),
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run carries the mutable state of one invocation.
type run struct {
	d      *Dispatcher
	inv    Invocation
	out    io.Writer
	logger *slog.Logger
	result Result
	record Record
}

// Dispatch sends one notification. The returned error is non-nil only for
// fatal failures: credential problems and invalid input always, transport
// failures only when inv.FailOnError is set. A nil error with
// Result.Response == nil means the notification was skipped or not confirmed.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) (Result, error) {
	r := d.start(inv)
	defer r.finish(ctx)

	if !inv.Outcome.Valid() {
		return r.fail(StateIdle, fmt.Errorf("%w: unknown build outcome %d", ErrInvalidInvocation, int(inv.Outcome)))
	}
	if !outcome.ShouldNotify(inv.Outcome, inv.Policy) {
		r.transition(StateSkipped)
		r.logger.Info("notification disabled for build outcome")
		return r.result, nil
	}

	r.transition(StateResolvingCredential)
	token, err := d.resolver.Resolve(ctx, inv.CredentialID, inv.Scope)
	if err != nil {
		r.println("Could not retrieve token from credentials: %s", strings.TrimSpace(inv.CredentialID))
		return r.fail(StateResolvingCredential, err)
	}

	r.transition(StateExpanding)
	fields, err := d.expandFields(inv)
	if err != nil {
		r.println("Could not expand notification parameters: %v", err)
		return r.fail(StateExpanding, err)
	}
	if strings.TrimSpace(fields.topic) == "" {
		err := fmt.Errorf("%w: topic is required", ErrInvalidInvocation)
		r.println("Topic is required")
		return r.fail(StateExpanding, err)
	}
	r.record.Topic = strings.TrimSpace(fields.topic)
	r.logger = r.logger.With(slog.String(logging.FieldTopic, r.record.Topic))

	r.transition(StateComposing)
	composed := outcome.Compose(inv.Outcome, outcome.Explicit{
		Message:  fields.message,
		Title:    fields.title,
		Priority: inv.Priority,
	}, inv.Env)

	r.transition(StateBuilding)
	req := payload.Build(fields.topic, composed.Message, composed.Title, composed.Priority, fields.tags)
	r.result.Request = &req
	r.record.Priority = req.Priority

	r.transition(StateSending)
	r.println("Sending notification to topic: %s", req.Topic)
	resp, err := d.sender.Send(ctx, req.Topic, req, token)
	if err != nil {
		return r.sendFailed(err)
	}

	if resp == nil {
		resp = &notifications.Response{}
	}
	r.transition(StateSucceeded)
	r.result.Response = resp
	r.record.ResponseID = resp.ID
	r.println("Notification sent successfully. ID: %s", resp.ID)
	r.logger.Info("notification sent", slog.String("id", resp.ID), slog.Int("priority", req.Priority))
	return r.result, nil
}

type expandedFields struct {
	topic   string
	message string
	title   string
	tags    []string
}

func (d *Dispatcher) expandFields(inv Invocation) (expandedFields, error) {
	var (
		out expandedFields
		err error
	)
	if out.topic, err = d.expander.String(inv.Topic, inv.Env); err != nil {
		return out, fmt.Errorf("topic: %w", err)
	}
	if out.message, err = d.expander.String(inv.Message, inv.Env); err != nil {
		return out, fmt.Errorf("message: %w", err)
	}
	if out.title, err = d.expander.String(inv.Title, inv.Env); err != nil {
		return out, fmt.Errorf("title: %w", err)
	}
	if out.tags, err = d.expander.Strings(inv.Tags, inv.Env); err != nil {
		return out, fmt.Errorf("tags: %w", err)
	}
	return out, nil
}

func (d *Dispatcher) start(inv Invocation) *run {
	id := d.newID()
	out := inv.Output
	if out == nil {
		out = io.Discard
	}
	started := d.now()
	return &run{
		d:   d,
		inv: inv,
		out: out,
		logger: d.logger.With(
			slog.String(logging.FieldInvocationID, id),
			slog.String(logging.FieldOutcome, inv.Outcome.String()),
		),
		result: Result{InvocationID: id, State: StateIdle},
		record: Record{
			InvocationID: id,
			CredentialID: strings.TrimSpace(inv.CredentialID),
			Topic:        strings.TrimSpace(inv.Topic),
			Outcome:      inv.Outcome,
			StartedAt:    started,
		},
	}
}

func (r *run) transition(next State) {
	r.logger.Debug("dispatch state", slog.String(logging.FieldState, next.String()), slog.String("from", r.result.State.String()))
	r.result.State = next
}

func (r *run) println(format string, args ...any) {
	fmt.Fprintf(r.out, LinePrefix+" "+format+"\n", args...)
}

func (r *run) fail(stage State, err error) (Result, error) {
	r.result.State = StateFailed
	r.result.Err = err
	r.record.ErrorKind = Classify(err)
	r.record.Error = err.Error()
	logging.ErrorWithContext(r.logger, "notification failed", r.record.ErrorKind, hintFor(err),
		slog.String(logging.FieldState, stage.String()),
		logging.Error(err),
	)
	return r.result, &FatalError{Stage: stage, Err: err}
}

func (r *run) sendFailed(err error) (Result, error) {
	if code, ok := notifications.IsStatus(err); ok {
		r.record.StatusCode = code
	}
	r.println("Failed to send notification: %v", err)
	if r.inv.FailOnError {
		return r.fail(StateSending, err)
	}

	r.result.State = StateFailed
	r.result.Err = err
	r.result.Suppressed = true
	r.record.Suppressed = true
	r.record.ErrorKind = Classify(err)
	r.record.Error = err.Error()
	logging.WarnWithContext(r.logger, "notification not confirmed; continuing", "transport_error",
		"set fail_on_error to stop the build on delivery failures",
		logging.Error(err),
	)
	return r.result, nil
}

func (r *run) finish(ctx context.Context) {
	if r.d.recorder == nil {
		return
	}
	r.record.State = r.result.State
	r.record.FinishedAt = r.d.now()
	// Recording must not inherit a cancelled or expired invocation context.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.d.recorder.Record(recordCtx, r.record); err != nil {
		r.logger.Warn("record dispatch history", logging.Error(err))
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, credentials.ErrBackendUnavailable):
		return "the keychain or credentials file could not be read; unlock it or export NOTIFER_TOKEN_<ID>"
	case errors.Is(err, credentials.ErrCredentialNotFound):
		return "check the credential id and that it is visible from this scope"
	case errors.Is(err, expand.ErrUnresolved):
		return "define the variable or disable expansion.strict"
	case errors.Is(err, ErrInvalidInvocation):
		return "check the step parameters"
	default:
		return ""
	}
}
