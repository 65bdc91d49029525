package testsupport

import (
	"context"
	"testing"

	"notifer/internal/config"
	"notifer/internal/credentials"
	"notifer/internal/history"
)

// MustOpenHistory opens the configured history store and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.OpenFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("history.OpenFromConfig: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// PutCredential writes a credential into the configured file store.
func PutCredential(t testing.TB, cfg *config.Config, id, secret string, scope credentials.Scope) {
	t.Helper()

	store := credentials.NewFileStore(cfg.Credentials.File)
	if err := store.Put(context.Background(), credentials.Credential{ID: id, Secret: secret, Scope: scope}); err != nil {
		t.Fatalf("credentials.Put: %v", err)
	}
}
