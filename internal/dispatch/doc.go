// Package dispatch runs one notification end to end: it resolves the topic
// token, expands templates against the environment snapshot, composes the
// content from the build outcome, builds the payload and hands it to the
// transport.
//
// Each call to Dispatcher.Dispatch is an independent invocation that walks
// the State machine once. Credential and input problems always surface as a
// *FatalError. Transport failures surface only when the invocation sets
// FailOnError; otherwise they are written to the invocation's output sink and
// the result is reported as suppressed. Every line written to the sink starts
// with LinePrefix.
package dispatch
