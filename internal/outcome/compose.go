package outcome

import (
	"strings"

	"notifer/internal/expand"
)

// AutoPriority is the sentinel asking Compose to derive the priority from
// the outcome.
const AutoPriority = 0

const (
	MinPriority = 1
	MaxPriority = 5
)

// Environment variables consulted when synthesizing a default message.
const (
	EnvJobName     = "JOB_NAME"
	EnvBuildNumber = "BUILD_NUMBER"
	EnvBuildURL    = "BUILD_URL"
)

// Explicit carries caller supplied values, already expanded.
type Explicit struct {
	Message  string
	Title    string
	Priority int
}

// Composition is the message content chosen for one notification.
type Composition struct {
	Message  string
	Title    string
	Priority int
}

// PriorityForAuto maps an outcome to its urgency: failures highest, aborted
// builds lowest.
func PriorityForAuto(o Outcome) int {
	switch o {
	case Failure:
		return 5
	case Unstable:
		return 3
	case Success:
		return 2
	case Aborted:
		return 1
	default:
		return 3
	}
}

// ClampPriority forces p into [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// DefaultTitle returns the synthesized title for o.
func DefaultTitle(o Outcome) string {
	switch o {
	case Success:
		return "Build Succeeded"
	case Failure:
		return "Build Failed"
	case Unstable:
		return "Build Unstable"
	case Aborted:
		return "Build Aborted"
	default:
		return "Build Finished"
	}
}

// DefaultMessage builds "<job> #<number>: build <outcome>" from the
// environment, followed by the build URL on its own line when known.
func DefaultMessage(o Outcome, env expand.Snapshot) string {
	job := strings.TrimSpace(env.Get(EnvJobName))
	if job == "" {
		job = "Build"
	}
	var b strings.Builder
	b.WriteString(job)
	if number := strings.TrimSpace(env.Get(EnvBuildNumber)); number != "" {
		b.WriteString(" #")
		b.WriteString(number)
	}
	b.WriteString(": build ")
	b.WriteString(strings.ToLower(o.Label()))
	if url := strings.TrimSpace(env.Get(EnvBuildURL)); url != "" {
		b.WriteByte('\n')
		b.WriteString(url)
	}
	return b.String()
}

// Compose fills in whatever the caller left out. A non-blank explicit message
// or title is used verbatim; priority 0 derives from the outcome and anything
// else is clamped rather than rejected.
func Compose(o Outcome, explicit Explicit, env expand.Snapshot) Composition {
	c := Composition{
		Message: explicit.Message,
		Title:   explicit.Title,
	}
	if strings.TrimSpace(c.Message) == "" {
		c.Message = DefaultMessage(o, env)
	}
	if strings.TrimSpace(c.Title) == "" {
		c.Title = DefaultTitle(o)
	}
	if explicit.Priority == AutoPriority {
		c.Priority = PriorityForAuto(o)
	} else {
		c.Priority = ClampPriority(explicit.Priority)
	}
	return c
}
