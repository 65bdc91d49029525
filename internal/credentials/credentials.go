package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCredentialNotFound reports that no visible credential matched the
// requested identifier, or that the matching credential has no secret.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrBackendUnavailable matches errors from a store that could not be read at
// all, such as a locked keychain or a malformed credentials file.
var ErrBackendUnavailable = errors.New("credential backend unavailable")

// BackendError reports a store read failure. It matches
// ErrBackendUnavailable under errors.Is.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is reports ErrBackendUnavailable as a match.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

// Resolver turns an opaque credential identifier into a topic token.
// Implementations must be safe for concurrent reads.
type Resolver interface {
	Resolve(ctx context.Context, id string, scope Scope) (string, error)
}

// Credential is a stored topic token.
type Credential struct {
	ID     string `toml:"id"`
	Secret string `toml:"secret"`
	Scope  Scope  `toml:"scope"`
}

// Scope is a slash separated authorization path such as "team-a/service-x".
// The empty scope is global.
type Scope string

// GlobalScope is visible to every caller.
const GlobalScope Scope = ""

// NormalizeScope trims whitespace and redundant slashes.
func NormalizeScope(value string) Scope {
	parts := strings.Split(strings.TrimSpace(value), "/")
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return Scope(strings.Join(kept, "/"))
}

// Visible reports whether a credential stored under s can be read by a caller
// running in the given scope.
func (s Scope) Visible(caller Scope) bool {
	if s == GlobalScope {
		return true
	}
	return caller == s || strings.HasPrefix(string(caller), string(s)+"/")
}

// Lineage returns the caller scope followed by each ancestor, ending with the
// global scope. "a/b" yields ["a/b", "a", ""].
func (s Scope) Lineage() []Scope {
	out := []Scope{}
	current := string(NormalizeScope(string(s)))
	for current != "" {
		out = append(out, Scope(current))
		idx := strings.LastIndex(current, "/")
		if idx < 0 {
			break
		}
		current = current[:idx]
	}
	return append(out, GlobalScope)
}

func notFound(id string, scope Scope) error {
	if scope == GlobalScope {
		return fmt.Errorf("%w: %q", ErrCredentialNotFound, id)
	}
	return fmt.Errorf("%w: %q (scope %s)", ErrCredentialNotFound, id, scope)
}

func checkID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("%w: credential id is required", ErrCredentialNotFound)
	}
	return trimmed, nil
}

// mostSpecific picks the visible credential with the longest scope.
func mostSpecific(candidates []Credential, id string, caller Scope) (Credential, bool) {
	var best Credential
	found := false
	for _, cred := range candidates {
		if cred.ID != id || !cred.Scope.Visible(caller) {
			continue
		}
		if !found || len(cred.Scope) > len(best.Scope) {
			best = cred
			found = true
		}
	}
	return best, found
}
