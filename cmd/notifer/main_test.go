package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"notifer/internal/credentials"
	"notifer/internal/dispatch"
	"notifer/internal/notifications"
	"notifer/internal/testsupport"
)

func TestSendDeliversExpandedMessage(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.PutCredential(t, env.cfg, "ci-token", "tk_live", "")

	out, _, err := runCLI(t, []string{
		"send",
		"--credentials-id", "ci-token",
		"--topic", "builds",
		"--message", "Build #${BUILD_NUMBER} OK",
		"--var", "BUILD_NUMBER=42",
		"--tag", "ci", "--tag", " deploy ", "--tag", "",
	}, env.configPath)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{
		"[Notifer] Sending notification to topic: builds",
		"[Notifer] Notification sent successfully. ID: msg-1",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("unexpected output lines:\n got %q\nwant %q", lines, want)
	}

	deliveries := env.server.Deliveries()
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	got := deliveries[0]
	if got.Token != "tk_live" || got.Topic != "builds" {
		t.Fatalf("unexpected delivery: %#v", got)
	}
	if got.Request.Message != "Build #42 OK" || got.Request.Title != "Build Succeeded" || got.Request.Priority != 2 {
		t.Fatalf("unexpected request: %#v", got.Request)
	}
	if !reflect.DeepEqual(got.Request.Tags, []string{"ci", "deploy"}) {
		t.Fatalf("expected trimmed tags, got %v", got.Request.Tags)
	}
}

func TestSendFailureUsesAutoPriority(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.PutCredential(t, env.cfg, "ci-token", "tk_live", "")
	t.Setenv("BUILD_RESULT", "FAILURE")
	t.Setenv("JOB_NAME", "api")
	t.Setenv("BUILD_NUMBER", "7")
	t.Setenv("BUILD_URL", "")

	if _, _, err := runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds"}, env.configPath); err != nil {
		t.Fatalf("send: %v", err)
	}
	req := env.server.Deliveries()[0].Request
	if req.Priority != 5 || req.Title != "Build Failed" {
		t.Fatalf("unexpected request: %#v", req)
	}
	if req.Message != "api #7: build failure" {
		t.Fatalf("unexpected default message %q", req.Message)
	}
}

func TestSendSkipsAbortedByDefault(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds", "--result", "ABORTED"}, env.configPath)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output for a skipped notification, got %q", out)
	}
	if n := len(env.server.Deliveries()); n != 0 {
		t.Fatalf("expected no deliveries, got %d", n)
	}

	out, _, err = runCLI(t, []string{
		"send", "--credentials-id", "ci-token", "--topic", "builds", "--result", "ABORTED", "--notify-aborted",
	}, env.configPath)
	if !errors.Is(err, credentials.ErrCredentialNotFound) {
		t.Fatalf("expected credential error once aborted builds notify, got %v (out=%q)", err, out)
	}
}

func TestSendTransportFailurePolicy(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.PutCredential(t, env.cfg, "ci-token", "tk_live", "")
	env.server.FailWith(http.StatusInternalServerError, "topic locked")

	out, _, err := runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds"}, env.configPath)
	if err != nil {
		t.Fatalf("expected suppressed failure, got %v", err)
	}
	if strings.Count(out, "[Notifer] Failed to send notification:") != 1 {
		t.Fatalf("expected exactly one failure line, got %q", out)
	}
	requireContains(t, out, "status 500: topic locked")

	_, _, err = runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds", "--fail-on-error"}, env.configPath)
	if err == nil {
		t.Fatal("expected fatal error with --fail-on-error")
	}
	var te *notifications.Error
	if !errors.As(err, &te) || te.StatusCode != http.StatusInternalServerError || te.Body != "topic locked" {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
}

func TestSendFailOnErrorFromConfig(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFailOnError(true))
	testsupport.PutCredential(t, env.cfg, "ci-token", "tk_live", "")
	env.server.FailWith(http.StatusBadGateway, "")

	if _, _, err := runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds"}, env.configPath); err == nil {
		t.Fatal("expected config fail_on_error to make the failure fatal")
	}
	if _, _, err := runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds", "--fail-on-error=false"}, env.configPath); err != nil {
		t.Fatalf("expected flag to override config, got %v", err)
	}
}

func TestSendMissingCredentialIsFatal(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"send", "--credentials-id", "nope", "--topic", "builds"}, env.configPath)
	if !errors.Is(err, credentials.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
	var fatal *dispatch.FatalError
	if !errors.As(err, &fatal) || fatal.Stage != dispatch.StateResolvingCredential {
		t.Fatalf("expected fatal resolving error, got %#v", err)
	}
	requireContains(t, out, "[Notifer] Could not retrieve token from credentials: nope")
	if n := len(env.server.Deliveries()); n != 0 {
		t.Fatalf("expected no deliveries, got %d", n)
	}
}

func TestSendRequiresTopicAndCredential(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"send", "--topic", "builds"}, env.configPath)
	if !errors.Is(err, dispatch.ErrInvalidInvocation) {
		t.Fatalf("expected invalid invocation without credentials id, got %v", err)
	}
	_, _, err = runCLI(t, []string{"send", "--credentials-id", "x"}, env.configPath)
	if !errors.Is(err, dispatch.ErrInvalidInvocation) {
		t.Fatalf("expected invalid invocation without topic, got %v", err)
	}
	_, _, err = runCLI(t, []string{"send", "--credentials-id", "x", "--topic", "t", "--result", "exploded"}, env.configPath)
	if !errors.Is(err, dispatch.ErrInvalidInvocation) {
		t.Fatalf("expected invalid invocation for unknown result, got %v", err)
	}
}

func TestSendEnvFileAndEnvFallback(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Credentials.EnvFallback = true
	writeTestConfig(t, env.configPath, env.cfg)

	envFile := filepath.Join(t.TempDir(), "build.env")
	content := "NOTIFER_TOKEN_RELEASE_BOT=tk_env\nRELEASE=v1.2.3\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	out, _, err := runCLI(t, []string{
		"send", "--credentials-id", "release-bot", "--topic", "releases",
		"--message", "Released $RELEASE", "--env-file", envFile, "--json",
	}, env.configPath)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	var report struct {
		Sent    bool   `json:"sent"`
		ID      string `json:"id"`
		Message string `json:"message"`
		State   string `json:"state"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode json output %q: %v", out, err)
	}
	if !report.Sent || report.ID != "msg-1" || report.Message != "Released v1.2.3" || report.State != "succeeded" {
		t.Fatalf("unexpected report: %#v", report)
	}
	if tok := env.server.Deliveries()[0].Token; tok != "tk_env" {
		t.Fatalf("expected env fallback token, got %q", tok)
	}
}

func TestSendRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.PutCredential(t, env.cfg, "ci-token", "tk_live", "")

	if _, _, err := runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "nightly"}, env.configPath); err != nil {
		t.Fatalf("send: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "nightly")
	requireContains(t, out, "succeeded")
	requireContains(t, out, "id msg-1")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history json: %v", err)
	}
	if len(entries) != 1 || entries[0]["topic"] != "nightly" {
		t.Fatalf("unexpected history entries: %v", entries)
	}
	requireNotContains(t, out, "tk_live")
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "History is disabled")
}

func TestTestNotify(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.PutCredential(t, env.cfg, "ci-token", "tk_live", "team")

	out, _, err := runCLI(t, []string{"test-notify", "--credentials-id", "ci-token", "--topic", "builds", "--scope", "team/app"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notification sent successfully")
	req := env.server.Deliveries()[0].Request
	if req.Title != testNotifyTitle || req.Priority != 2 {
		t.Fatalf("unexpected test request: %#v", req)
	}

	if _, _, err := runCLI(t, []string{"test-notify", "--credentials-id", "ci-token", "--topic", "builds"}, env.configPath); err == nil {
		t.Fatal("expected scoped credential to be invisible from the global scope")
	}
}
