// Package expr implements the query expression AST: a closed
// set of scalar/logical/arithmetic/collection expression node kinds, each
// offering static type inference and constant folding, grounded on
// `internal/message`'s Message/Kind tagged-union modeling style
// (generalized here to an interface + type-switch sum type since
// the AST has far more variants than a single struct tag can express
// cleanly).
package expr

import "fmt"

// QueryLocation is a byte range within a query's source text, carried by
// every AST node for diagnostics.
type QueryLocation struct {
	Start int
	End   int
}

func (l QueryLocation) String() string { return fmt.Sprintf("%d..%d", l.Start, l.End) }

// ValueType is the closed set of value kinds an expression may statically
// resolve to.
type ValueType int

const (
	ValueTypeUnknown ValueType = iota
	ValueTypeArray
	ValueTypeBoolean
	ValueTypeDateTime
	ValueTypeDouble
	ValueTypeInteger
	ValueTypeMap
	ValueTypeNull
	ValueTypeRegex
	ValueTypeString
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeArray:
		return "array"
	case ValueTypeBoolean:
		return "boolean"
	case ValueTypeDateTime:
		return "datetime"
	case ValueTypeDouble:
		return "double"
	case ValueTypeInteger:
		return "integer"
	case ValueTypeMap:
		return "map"
	case ValueTypeNull:
		return "null"
	case ValueTypeRegex:
		return "regex"
	case ValueTypeString:
		return "string"
	default:
		return "unknown"
	}
}

// ValidationFailure is the diagnostic produced by illegal-but-detectable
// static folds (divide/modulo by the literal zero, the).
type ValidationFailure struct {
	Location QueryLocation
	Message  string
}

func (f *ValidationFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Location, f.Message)
}
