package preflight

import (
	"context"
	"path/filepath"

	"notifer/internal/config"
	"notifer/internal/credentials"
	"notifer/internal/notifications"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options adds optional checks to RunAll.
type Options struct {
	// Resolver and CredentialID enable a lookup check when both are set.
	Resolver     credentials.Resolver
	CredentialID string
	Scope        credentials.Scope
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	client, err := notifications.NewClientFromConfig(cfg, nil)
	if err != nil {
		results = append(results, Result{Name: "Endpoint", Detail: err.Error()})
	} else {
		results = append(results, CheckEndpoint(ctx, client))
	}

	if cfg.Credentials.Backend == config.BackendFile {
		results = append(results, CheckCredentialsFile(cfg.Credentials.File))
	}
	if opts.Resolver != nil && opts.CredentialID != "" {
		results = append(results, CheckCredential(ctx, opts.Resolver, opts.CredentialID, opts.Scope))
	}

	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.History.Path)))
	}
	if cfg.Logging.File != "" {
		results = append(results, CheckDirectoryAccess("Log directory", filepath.Dir(cfg.Logging.File)))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
