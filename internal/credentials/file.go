package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"notifer/internal/fileutil"
)

const lockRetryDelay = 50 * time.Millisecond

type credentialFile struct {
	Credentials []Credential `toml:"credential"`
}

// FileStore reads credentials from a TOML file:
//
//	[[credential]]
//	id = "ci-topic"
//	secret = "tk_..."
//	scope = "team-a"
//
// Readers share a lock on "<file>.lock" so concurrent invocations never block
// each other; Put takes the lock exclusively while rewriting the file. Each
// operation opens its own lock handle.
type FileStore struct {
	path     string
	lockPath string
}

// NewFileStore returns a store for the given file path. The file does not need
// to exist until the first Put.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lockPath: path + ".lock"}
}

// Path returns the credentials file location.
func (f *FileStore) Path() string {
	return f.path
}

// Resolve implements Resolver.
func (f *FileStore) Resolve(ctx context.Context, id string, scope Scope) (string, error) {
	id, err := checkID(id)
	if err != nil {
		return "", err
	}
	scope = NormalizeScope(string(scope))

	creds, err := f.read(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &BackendError{Backend: "credentials file", Err: err}
	}
	cred, ok := mostSpecific(creds, id, scope)
	if !ok || strings.TrimSpace(cred.Secret) == "" {
		return "", notFound(id, scope)
	}
	return cred.Secret, nil
}

// Put adds or replaces a credential and rewrites the file with owner-only
// permissions.
func (f *FileStore) Put(ctx context.Context, cred Credential) error {
	id, err := checkID(cred.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cred.Secret) == "" {
		return errors.New("credential secret must not be empty")
	}
	cred.ID = id
	cred.Scope = NormalizeScope(string(cred.Scope))

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	lock := flock.New(f.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock credentials file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock credentials file: %s is busy", f.path)
	}
	defer lock.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range doc.Credentials {
		existing := &doc.Credentials[i]
		if existing.ID == cred.ID && NormalizeScope(string(existing.Scope)) == cred.Scope {
			*existing = cred
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Credentials = append(doc.Credentials, cred)
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := fileutil.WriteFileAtomic(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (f *FileStore) read(ctx context.Context) ([]Credential, error) {
	if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return nil, fmt.Errorf("create credentials directory: %w", err)
	}
	lock := flock.New(f.lockPath)
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock credentials file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock credentials file: %s is busy", f.path)
	}
	defer lock.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return doc.Credentials, nil
}

func (f *FileStore) load() (credentialFile, error) {
	var doc credentialFile
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read credentials: %w", err)
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse credentials %s: %w", f.path, err)
	}
	for i := range doc.Credentials {
		doc.Credentials[i].ID = strings.TrimSpace(doc.Credentials[i].ID)
		doc.Credentials[i].Scope = NormalizeScope(string(doc.Credentials[i].Scope))
	}
	return doc, nil
}
