package credentials

import (
	"context"
	"strings"
)

// EnvPrefix prefixes variables consulted by EnvStore.
const EnvPrefix = "NOTIFER_TOKEN_"

// EnvStore resolves credential id "ci-topic" to the variable
// NOTIFER_TOKEN_CI_TOPIC. Scope is ignored: anything in the build
// environment is already visible to the build.
type EnvStore struct {
	lookup func(string) (string, bool)
}

// NewEnvStore returns a store reading from lookup, typically a snapshot's
// Lookup method or os.LookupEnv.
func NewEnvStore(lookup func(string) (string, bool)) *EnvStore {
	return &EnvStore{lookup: lookup}
}

// Resolve implements Resolver.
func (e *EnvStore) Resolve(_ context.Context, id string, scope Scope) (string, error) {
	id, err := checkID(id)
	if err != nil {
		return "", err
	}
	if e.lookup != nil {
		if value, ok := e.lookup(EnvVarName(id)); ok && strings.TrimSpace(value) != "" {
			return value, nil
		}
	}
	return "", notFound(id, NormalizeScope(string(scope)))
}

// EnvVarName returns the variable EnvStore reads for a credential id.
func EnvVarName(id string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for _, r := range strings.TrimSpace(id) {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
