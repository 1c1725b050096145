package validator

import "fmt"

// Predicate inspects reply text and returns a reason when it rejects it; a
// nil return is acceptance.
type Predicate func(text string) error

// FreeText wraps a caller-supplied Predicate. A panicking predicate is
// treated as a validation failure rather than crashing the dispatch loop.
type FreeText struct {
	Predicate Predicate
	// RetryHint is placed before the predicate's message in the rejection
	// addendum sent back upstream; it may be empty.
	RetryHint string
}

func (f FreeText) Validate(text string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = fail(fmt.Sprintf("validator panicked: %v", r), f.RetryHint)
		}
	}()

	if err := f.Predicate(text); err != nil {
		msg := err.Error()
		suffix := msg
		if f.RetryHint != "" {
			suffix = f.RetryHint + " " + msg
		}
		return fail(msg, suffix)
	}
	return ok(text)
}
