package harness

import (
	"fmt"
	"slices"
	"strings"
)

// CheckError is returned when a trace check fails.
type CheckError struct {
	Check    string  // Check name for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	Trace    []Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Check failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %v\n", event.Seq, event.Type, event.Template, event.IDs)
	}

	return buf.String()
}

// Check verifies the trace of r and returns one error per failed check.
func Check(r *Result) []error {
	var errs []error
	if err := checkReleasesMatch(r.Events); err != nil {
		errs = append(errs, err)
	}
	if r.Kept {
		return errs
	}
	if err := checkReleaseOrder(r.Events); err != nil {
		errs = append(errs, err)
	}
	if r.Remaining != 0 {
		errs = append(errs, &CheckError{
			Check:    "nothing_remains",
			Expected: "0 provisioned fixtures in the store",
			Actual:   fmt.Sprintf("%d remain", r.Remaining),
			Trace:    r.Events,
		})
	}
	return errs
}

// checkReleasesMatch verifies every release deletes exactly the ids of an
// earlier provision of the same template.
func checkReleasesMatch(trace []Event) error {
	var provisioned []Event
	for _, e := range trace {
		switch e.Type {
		case EventProvision:
			provisioned = append(provisioned, e)
		case EventRelease:
			if !slices.ContainsFunc(provisioned, func(p Event) bool {
				return p.Template == e.Template && slices.Equal(p.IDs, e.IDs)
			}) {
				return &CheckError{
					Check:    "release_matches_provision",
					Expected: fmt.Sprintf("release of %s to delete provisioned ids", e.Template),
					Actual:   fmt.Sprintf("released %v", e.IDs),
					Trace:    trace,
				}
			}
		}
	}
	return nil
}

// checkReleaseOrder verifies provisioned batches are released once each, in
// provisioning order.
func checkReleaseOrder(trace []Event) error {
	var provisioned, released []string
	for _, e := range trace {
		switch e.Type {
		case EventProvision:
			provisioned = append(provisioned, e.Template)
		case EventRelease:
			released = append(released, e.Template)
		}
	}
	if !slices.Equal(provisioned, released) {
		return &CheckError{
			Check:    "release_order",
			Expected: fmt.Sprintf("releases %v", provisioned),
			Actual:   fmt.Sprintf("releases %v", released),
			Trace:    trace,
		}
	}
	return nil
}
