// Package expand captures the build environment as an immutable Snapshot and
// substitutes ${NAME} and $NAME placeholders in user supplied templates.
//
// Unknown placeholders are left verbatim by default so a missing variable
// never aborts a pipeline step; Expander{Strict: true} turns them into
// ErrUnresolved for operators who prefer failing loudly.
package expand
