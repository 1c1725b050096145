package validator

import "regexp"

// Pattern validates that a reply's text matches a regular expression.
type Pattern struct {
	Expr            *regexp.Regexp
	CaseInsensitive bool
	RetryHint       string
}

// NewPattern compiles expr, optionally folding it to case-insensitive
// matching, and returns a ready-to-use Pattern validator.
func NewPattern(expr string, caseInsensitive bool, retryHint string) (*Pattern, error) {
	if caseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Pattern{Expr: re, CaseInsensitive: caseInsensitive, RetryHint: retryHint}, nil
}

func (p Pattern) Validate(text string) Outcome {
	if p.Expr == nil || !p.Expr.MatchString(text) {
		return fail("reply did not match the required pattern", p.RetryHint)
	}
	return ok(text)
}
