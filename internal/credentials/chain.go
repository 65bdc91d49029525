package credentials

import (
	"context"
	"errors"
	"log/slog"

	"notifer/internal/logging"
)

// Chain consults resolvers in order and returns the first token found. A
// store that cannot be read does not stop the walk: later resolvers are still
// tried, and the failure is logged when one of them succeeds. When none does,
// the error wraps ErrCredentialNotFound joined with every backend failure.
type Chain struct {
	resolvers []Resolver
	logger    *slog.Logger
}

// NewChain builds a chain over resolvers. Nil resolvers are skipped and a nil
// logger discards warnings.
func NewChain(logger *slog.Logger, resolvers ...Resolver) *Chain {
	kept := make([]Resolver, 0, len(resolvers))
	for _, r := range resolvers {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return &Chain{resolvers: kept, logger: logging.NewComponentLogger(logger, "credentials")}
}

// Len reports how many resolvers the chain consults.
func (c *Chain) Len() int {
	return len(c.resolvers)
}

// Resolve implements Resolver.
func (c *Chain) Resolve(ctx context.Context, id string, scope Scope) (string, error) {
	id, err := checkID(id)
	if err != nil {
		return "", err
	}
	var unavailable []error
	for _, r := range c.resolvers {
		secret, err := r.Resolve(ctx, id, scope)
		switch {
		case err == nil:
			for _, skipped := range unavailable {
				logging.WarnWithContext(c.logger, "credential store unreadable; used a later store", "credential_backend",
					"fix the keychain or credentials file, or keep relying on the fallback",
					logging.Error(skipped))
			}
			return secret, nil
		case ctx.Err() != nil:
			return "", ctx.Err()
		case errors.Is(err, ErrCredentialNotFound) && !errors.Is(err, ErrBackendUnavailable):
		default:
			unavailable = append(unavailable, err)
		}
	}
	missing := notFound(id, NormalizeScope(string(scope)))
	if len(unavailable) == 0 {
		return "", missing
	}
	return "", errors.Join(append([]error{missing}, unavailable...)...)
}
