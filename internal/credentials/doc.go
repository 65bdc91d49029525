// Package credentials resolves topic tokens from an opaque credential id and
// the caller's authorization scope.
//
// Stores are read-only from the dispatcher's point of view and safe for
// concurrent lookups. MemoryStore serves tests, KeyringStore reads the OS
// keychain, FileStore reads a TOML file guarded by advisory locks, and
// EnvStore reads NOTIFER_TOKEN_* variables from the build environment. Chain
// combines them and keeps going past a store it cannot read.
//
// Every miss wraps ErrCredentialNotFound; a store that could not be read
// returns a *BackendError matching ErrBackendUnavailable.
package credentials
