package ir

import (
	"errors"
	"fmt"
	"sort"
)

// DiagCode categorizes analysis diagnostics. Diagnostics are
// advisory: malformed-but-parseable input never aborts analysis, it
// degrades precision and gets recorded here.
type DiagCode string

const (
	// DiagUnresolvedReference marks a tag reference whose base tag is
	// absent from every enclosing scope.
	DiagUnresolvedReference DiagCode = "UNRESOLVED_REFERENCE"

	// DiagAmbiguousStateVariable marks equally-ranked state-variable
	// candidates resolved by declaration order.
	DiagAmbiguousStateVariable DiagCode = "AMBIGUOUS_STATE_VARIABLE"

	// DiagMissingOverlay marks a controller analyzed without its
	// expected supplementary context.
	DiagMissingOverlay DiagCode = "MISSING_OVERLAY"

	// DiagStructuralGap marks a statement preserved as a raw fallback,
	// where def/use precision is lost.
	DiagStructuralGap DiagCode = "STRUCTURAL_GAP"
)

// Diagnostic is one advisory finding, attributed to the narrowest
// scope that produced it.
type Diagnostic struct {
	Code       DiagCode `json:"code"`
	Controller string   `json:"controller,omitempty"`
	Program    string   `json:"program,omitempty"`
	Routine    string   `json:"routine,omitempty"`
	Tag        string   `json:"tag,omitempty"`
	Detail     string   `json:"detail"`
}

func (d Diagnostic) String() string {
	loc := d.Controller
	if d.Program != "" {
		loc += "/" + d.Program
	}
	if d.Routine != "" {
		loc += "/" + d.Routine
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Code, d.Detail)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Code, loc, d.Detail)
}

// Diagnostics aggregates findings across a run.
type Diagnostics []Diagnostic

// ByController groups diagnostics for reporting, controllers sorted by
// name so output is reproducible.
func (ds Diagnostics) ByController() map[string]Diagnostics {
	out := make(map[string]Diagnostics)
	for _, d := range ds {
		out[d.Controller] = append(out[d.Controller], d)
	}
	return out
}

// Sorted returns a stable copy ordered by controller, program,
// routine, code, then tag.
func (ds Diagnostics) Sorted() Diagnostics {
	out := append(Diagnostics(nil), ds...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Controller != b.Controller {
			return a.Controller < b.Controller
		}
		if a.Program != b.Program {
			return a.Program < b.Program
		}
		if a.Routine != b.Routine {
			return a.Routine < b.Routine
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Tag < b.Tag
	})
	return out
}

// Count returns the number of diagnostics with the given code.
func (ds Diagnostics) Count(code DiagCode) int {
	n := 0
	for _, d := range ds {
		if d.Code == code {
			n++
		}
	}
	return n
}

// InvariantError is a true programmer-error invariant violation, the
// only failure that aborts analysis.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Invariant, e.Detail)
}

// IsInvariantError reports whether err is an invariant violation.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
