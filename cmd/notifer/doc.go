// Package main hosts the notifer CLI entrypoint and command graph.
//
// The Cobra command tree is the host for the dispatch engine: it loads
// configuration, snapshots the build environment, picks the credential
// backend and hands one invocation to internal/dispatch per send. Progress
// lines go to stdout; structured logs go to stderr.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through dedicated commands or flags here.
package main
