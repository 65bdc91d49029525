// Package config loads, normalizes, and validates notifer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NOTIFER_BASE_URL and NOTIFER_PROXY_URL. The Config type centralizes the
// endpoint, credential store, notify policy, and history settings so the CLI
// and the dispatcher read them from one place.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
