package payload

import (
	"strings"

	"notifer/internal/outcome"
)

// MaxTags is the most tags a notification may carry.
const MaxTags = 5

// Request is the normalized notification handed to the transport. Topic is
// routed in the URL and never serialized into the body.
type Request struct {
	Topic    string   `json:"-"`
	Message  string   `json:"message"`
	Title    string   `json:"title,omitempty"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags,omitempty"`
}

// Build assembles a Request. The priority is clamped to [1,5], a blank title
// is dropped, and tags are trimmed and cut to the first MaxTags non-blank
// entries in their original order.
func Build(topic, message, title string, priority int, tags []string) Request {
	req := Request{
		Topic:    strings.TrimSpace(topic),
		Message:  message,
		Priority: outcome.ClampPriority(priority),
		Tags:     NormalizeTags(tags),
	}
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		req.Title = trimmed
	}
	return req
}

// NormalizeTags trims entries, drops blanks and keeps at most MaxTags.
// Repeated tags are kept as given. It returns nil when nothing survives.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, min(len(tags), MaxTags))
	for _, tag := range tags {
		if len(out) == MaxTags {
			break
		}
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MergeTags appends extra after primary, preserving order. Normalization is
// left to Build.
func MergeTags(primary, extra []string) []string {
	if len(extra) == 0 {
		return primary
	}
	out := make([]string, 0, len(primary)+len(extra))
	out = append(out, primary...)
	return append(out, extra...)
}
