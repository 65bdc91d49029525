package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"notifer/internal/credentials"
	"notifer/internal/notifications"
)

const endpointTimeout = 5 * time.Second

// CheckEndpoint verifies the notifer endpoint answers HTTP through the same
// transport and proxy settings used for sends. Any HTTP status below 500
// counts as reachable; tokens are not exercised.
func CheckEndpoint(ctx context.Context, client *notifications.Client) Result {
	const name = "Endpoint"

	checkCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()

	status, err := client.Ping(checkCtx)
	if err != nil {
		if notifications.IsTimeout(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (timed out)", client.BaseURL())}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (unreachable: %v)", client.BaseURL(), err)}
	}
	if status >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (server error %d)", client.BaseURL(), status)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", client.BaseURL())}
}

// CheckCredentialsFile verifies the credentials file is absent or readable
// only by its owner.
func CheckCredentialsFile(path string) Result {
	const name = "Credentials file"

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: mode %04o exposes tokens; chmod 600)", path, perm)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (owner-only)", path)}
}

// CheckCredential verifies id resolves from scope. The secret is never
// included in the result.
func CheckCredential(ctx context.Context, resolver credentials.Resolver, id string, scope credentials.Scope) Result {
	name := "Credential " + id
	if _, err := resolver.Resolve(ctx, id, scope); err != nil {
		return Result{Name: name, Detail: strings.ReplaceAll(err.Error(), "\n", "; ")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("resolved from scope %s", credentials.NormalizeScope(string(scope)))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
