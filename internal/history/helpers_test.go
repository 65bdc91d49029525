package history_test

import (
	"testing"

	"notifer/internal/config"
	"notifer/internal/credentials"
	"notifer/internal/notifications"
)

func credentialsFor(cfg *config.Config) credentials.Resolver {
	return credentials.NewFileStore(cfg.Credentials.File)
}

func clientFor(t *testing.T, baseURL string) *notifications.Client {
	t.Helper()
	client, err := notifications.NewClient(notifications.Options{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}
