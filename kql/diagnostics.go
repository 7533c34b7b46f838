// Package kql implements a hand-rolled recursive-descent parser for the
// KQL-like query language. No available library covers a parser
// generator or combinator toolkit for a custom grammar like this one,
// so it is written directly against text/scanner-style manual lexing.
package kql

import (
	"fmt"

	"github.com/otelcol-arrow-dataflow/engine/expr"
)

// SyntaxError is a raw grammar failure: the input did not match any
// production.
type SyntaxError struct {
	Location expr.QueryLocation
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Location, e.Message)
}

// QueryLanguageDiagnostic is a structured, semantically-meaningful
// failure raised during parsing or the static-resolution pass that
// follows it, carrying a stable diagnostic id ("KS…") for
// tooling.
type QueryLanguageDiagnostic struct {
	Location     expr.QueryLocation
	DiagnosticID string
	Message      string
}

func (d *QueryLanguageDiagnostic) Error() string {
	return fmt.Sprintf("%s at %s: %s", d.DiagnosticID, d.Location, d.Message)
}

const (
	// DiagStringExpected fires when a function requires a string-typed
	// operand and did not get one (parse_json, parse_regex, …).
	DiagStringExpected = "KS107"
	// DiagArrayExpected fires when a function requires a dynamic-array
	// operand (array_concat) and did not get one.
	DiagArrayExpected = "KS234"
)

func errStringExpected(loc expr.QueryLocation, fn string) *QueryLanguageDiagnostic {
	return &QueryLanguageDiagnostic{
		Location:     loc,
		DiagnosticID: DiagStringExpected,
		Message:      fmt.Sprintf("A value of type string expected for argument to %s", fn),
	}
}

func errArrayExpected(loc expr.QueryLocation, fn string) *QueryLanguageDiagnostic {
	return &QueryLanguageDiagnostic{
		Location:     loc,
		DiagnosticID: DiagArrayExpected,
		Message:      fmt.Sprintf("The expression value must be a dynamic array for argument to %s", fn),
	}
}
