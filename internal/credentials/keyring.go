package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringStore reads topic tokens from the operating system keychain.
//
// Scoped entries are stored under the account "<scope>:<id>"; global entries
// use the bare id. Lookups walk from the caller scope up to global so the most
// specific entry wins.
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a store bound to a keychain service name.
func NewKeyringStore(service string) *KeyringStore {
	service = strings.TrimSpace(service)
	if service == "" {
		service = "notifer"
	}
	return &KeyringStore{service: service}
}

// Resolve implements Resolver.
func (k *KeyringStore) Resolve(_ context.Context, id string, scope Scope) (string, error) {
	id, err := checkID(id)
	if err != nil {
		return "", err
	}
	for _, candidate := range scope.Lineage() {
		secret, err := keyring.Get(k.service, keyringAccount(id, candidate))
		if errors.Is(err, keyring.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", &BackendError{Backend: "keychain " + k.service, Err: err}
		}
		if strings.TrimSpace(secret) == "" {
			continue
		}
		return secret, nil
	}
	return "", notFound(id, NormalizeScope(string(scope)))
}

// Put stores a token in the keychain.
func (k *KeyringStore) Put(cred Credential) error {
	id, err := checkID(cred.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cred.Secret) == "" {
		return errors.New("credential secret must not be empty")
	}
	account := keyringAccount(id, NormalizeScope(string(cred.Scope)))
	if err := keyring.Set(k.service, account, cred.Secret); err != nil {
		return fmt.Errorf("write keychain %s: %w", k.service, err)
	}
	return nil
}

// Delete removes a token from the keychain. Missing entries are not an error.
func (k *KeyringStore) Delete(id string, scope Scope) error {
	id, err := checkID(id)
	if err != nil {
		return err
	}
	err = keyring.Delete(k.service, keyringAccount(id, NormalizeScope(string(scope))))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keychain entry: %w", err)
	}
	return nil
}

func keyringAccount(id string, scope Scope) string {
	if scope == GlobalScope {
		return id
	}
	return string(scope) + ":" + id
}
