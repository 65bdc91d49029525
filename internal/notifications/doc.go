// Package notifications delivers a built notification to the topic endpoint.
//
// Client posts the JSON payload to {base_url}/{topic} with the topic token in
// the X-Topic-Token header, bounded by a per-call timeout, and honours an
// explicit or environment-configured HTTP proxy. Failures come back as *Error
// so callers can tell a rejected request (status code and body) from a
// network failure that never produced a response.
package notifications
