package main

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"

	"notifer/internal/config"
	"notifer/internal/credentials"
	"notifer/internal/testsupport"
)

func TestCredentialsSetAndCheck(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLIWithInput(t, []string{"credentials", "set", "--id", "ci-token", "--scope", "team/", "--token-stdin"}, env.configPath, "tk_from_stdin\n")
	if err != nil {
		t.Fatalf("credentials set: %v", err)
	}
	requireContains(t, out, "Stored credential ci-token (scope team)")

	secret, err := credentials.NewFileStore(env.cfg.Credentials.File).Resolve(context.Background(), "ci-token", "team")
	if err != nil || secret != "tk_from_stdin" {
		t.Fatalf("expected stored secret, got %q, %v", secret, err)
	}

	out, _, err = runCLI(t, []string{"credentials", "check", "--id", "ci-token", "--scope", "team/app"}, env.configPath)
	if err != nil {
		t.Fatalf("credentials check: %v", err)
	}
	requireContains(t, out, "[OK]")
	requireNotContains(t, out, "tk_from_stdin")

	out, _, err = runCLI(t, []string{"credentials", "check", "--id", "ci-token"}, env.configPath)
	if err == nil {
		t.Fatal("expected check from the global scope to fail")
	}
	requireContains(t, out, "[ERROR]")
}

func TestCredentialsSetRequiresToken(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"credentials", "set", "--id", "ci-token"}, env.configPath); err == nil {
		t.Fatal("expected error without a token")
	}
}

func TestCredentialsSetKeyring(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Credentials.Backend = config.BackendKeyring
	env.cfg.Credentials.KeyringService = "notifer-cli-test"
	writeTestConfig(t, env.configPath, env.cfg)
	keyring.MockInit()

	if _, _, err := runCLI(t, []string{"credentials", "set", "--id", "ci-token", "--token", "tk_ring"}, env.configPath); err != nil {
		t.Fatalf("credentials set: %v", err)
	}
	if _, _, err := runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds"}, env.configPath); err != nil {
		t.Fatalf("send: %v", err)
	}
	if tok := env.server.Deliveries()[0].Token; tok != "tk_ring" {
		t.Fatalf("expected keyring token, got %q", tok)
	}
}

func TestCredentialsSetEnvBackendIsReadOnly(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithBackend(config.BackendEnv))
	_, _, err := runCLI(t, []string{"credentials", "set", "--id", "ci-token", "--token", "x"}, env.configPath)
	if err == nil {
		t.Fatal("expected env backend to reject writes")
	}
	requireContains(t, err.Error(), "NOTIFER_TOKEN_CI_TOKEN")
}

func TestSendFallsBackToEnvTokenWhenKeyringUnavailable(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Credentials.Backend = config.BackendKeyring
	env.cfg.Credentials.EnvFallback = true
	writeTestConfig(t, env.configPath, env.cfg)
	keyring.MockInitWithError(errors.New("The name org.freedesktop.secrets was not provided by any .service files"))
	t.Cleanup(keyring.MockInit)
	t.Setenv("NOTIFER_TOKEN_CI_TOKEN", "tk_env")

	out, _, err := runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds"}, env.configPath)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	requireContains(t, out, "[Notifer] Notification sent successfully. ID: msg-1")
	if tok := env.server.Deliveries()[0].Token; tok != "tk_env" {
		t.Fatalf("expected env token, got %q", tok)
	}

	t.Setenv("NOTIFER_TOKEN_CI_TOKEN", "")
	_, _, err = runCLI(t, []string{"send", "--credentials-id", "ci-token", "--topic", "builds"}, env.configPath)
	if !errors.Is(err, credentials.ErrCredentialNotFound) || !errors.Is(err, credentials.ErrBackendUnavailable) {
		t.Fatalf("expected not-found joined with backend failure, got %v", err)
	}
}
