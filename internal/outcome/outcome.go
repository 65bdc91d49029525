package outcome

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Outcome is the terminal status of the build being reported.
type Outcome int

const (
	Success Outcome = iota + 1
	Failure
	Unstable
	Aborted
)

// All lists every outcome in declaration order.
var All = []Outcome{Success, Failure, Unstable, Aborted}

// String returns the canonical upper-case name used by CI servers.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Unstable:
		return "UNSTABLE"
	case Aborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Label returns the display form, e.g. "Success".
func (o Outcome) Label() string {
	// Casers carry state; build one per call so Label is goroutine safe.
	return cases.Title(language.English).String(strings.ToLower(o.String()))
}

// Valid reports whether o is one of the declared outcomes.
func (o Outcome) Valid() bool {
	return o >= Success && o <= Aborted
}

// Parse accepts CI result names case-insensitively, plus a few common
// synonyms ("passed", "failed", "cancelled").
func Parse(value string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "success", "succeeded", "passed", "ok":
		return Success, nil
	case "failure", "failed", "error":
		return Failure, nil
	case "unstable":
		return Unstable, nil
	case "aborted", "cancelled", "canceled":
		return Aborted, nil
	default:
		return 0, fmt.Errorf("unknown build result %q (want SUCCESS, FAILURE, UNSTABLE or ABORTED)", value)
	}
}

// Policy holds the per-outcome notification switches.
type Policy struct {
	OnSuccess  bool
	OnFailure  bool
	OnUnstable bool
	OnAborted  bool
}

// DefaultPolicy notifies on everything except aborted builds.
func DefaultPolicy() Policy {
	return Policy{OnSuccess: true, OnFailure: true, OnUnstable: true}
}

// ShouldNotify reports whether policy enables notifications for o. Unknown
// outcomes never notify.
func ShouldNotify(o Outcome, p Policy) bool {
	switch o {
	case Success:
		return p.OnSuccess
	case Failure:
		return p.OnFailure
	case Unstable:
		return p.OnUnstable
	case Aborted:
		return p.OnAborted
	default:
		return false
	}
}
