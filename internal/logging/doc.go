// Package logging assembles structured slog loggers used across notifer.
//
// It owns the console and JSON handlers, maps configured level names onto
// slog levels, and exposes component loggers plus the field names shared by
// the dispatcher, transport and credential stores. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
