// Package outcome classifies build results and composes notification content
// from them.
//
// ShouldNotify applies the per-outcome switches; Compose keeps explicit
// message, title and priority values and synthesizes the rest from the
// outcome and the JOB_NAME, BUILD_NUMBER and BUILD_URL variables.
package outcome
