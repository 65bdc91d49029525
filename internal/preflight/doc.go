// Package preflight provides readiness checks for the notifer endpoint, the
// credential backend and the local paths notifer writes to.
//
// The CLI "notifer doctor" command runs RunAll and renders each Result as a
// status line. Checks for disabled features are skipped.
package preflight
