package credentials

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps credentials in process memory. It backs unit tests and
// hosts that inject secrets at startup.
type MemoryStore struct {
	mu    sync.RWMutex
	creds []Credential
}

// NewMemoryStore returns a store seeded with the given credentials.
func NewMemoryStore(creds ...Credential) *MemoryStore {
	s := &MemoryStore{}
	for _, cred := range creds {
		s.Put(cred)
	}
	return s
}

// Put adds or replaces the credential with the same id and scope.
func (s *MemoryStore) Put(cred Credential) {
	cred.ID = strings.TrimSpace(cred.ID)
	cred.Scope = NormalizeScope(string(cred.Scope))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.creds {
		if s.creds[i].ID == cred.ID && s.creds[i].Scope == cred.Scope {
			s.creds[i] = cred
			return
		}
	}
	s.creds = append(s.creds, cred)
}

// Resolve implements Resolver.
func (s *MemoryStore) Resolve(_ context.Context, id string, scope Scope) (string, error) {
	id, err := checkID(id)
	if err != nil {
		return "", err
	}
	scope = NormalizeScope(string(scope))

	s.mu.RLock()
	cred, ok := mostSpecific(s.creds, id, scope)
	s.mu.RUnlock()

	if !ok || strings.TrimSpace(cred.Secret) == "" {
		return "", notFound(id, scope)
	}
	return cred.Secret, nil
}
