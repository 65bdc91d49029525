// Package history keeps a local SQLite log of dispatch results so operators
// can see which notifications were delivered, suppressed or skipped.
//
// Store implements dispatch.Recorder. Records never contain tokens.
package history
