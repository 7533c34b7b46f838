package kql

import "github.com/otelcol-arrow-dataflow/engine/expr"

// SignalScope identifies the leading identifier of a query — which
// signal's batches the pipeline applies to.
type SignalScope int

const (
	SignalScopeLogs SignalScope = iota
	SignalScopeTraces
	SignalScopeMetrics
	SignalScopeAll
)

func (s SignalScope) String() string {
	switch s {
	case SignalScopeLogs:
		return "logs"
	case SignalScopeTraces:
		return "traces"
	case SignalScopeMetrics:
		return "metrics"
	case SignalScopeAll:
		return "signal"
	default:
		return "unknown"
	}
}

// DataExpression is the sum type of pipeline stage expressions a query
// compiles to.
type DataExpression interface {
	Location() expr.QueryLocation
	isDataExpression()
}

// DiscardExpression discards rows for which Predicate evaluates true —
// the compiled form of `| where <cond>` is DiscardExpression{Not(cond)},
// matching the canonical "Discard(Not(predicate))" shape the
// names explicitly.
type DiscardExpression struct {
	Loc       expr.QueryLocation
	Predicate expr.ScalarExpression
}

func (e *DiscardExpression) Location() expr.QueryLocation { return e.Loc }
func (*DiscardExpression) isDataExpression()               {}

// UnsupportedExpression is produced for any parsed stage kind this core
// does not yet plan; the planner turns it into a
// NotYetSupportedError at plan time rather than the parser rejecting the
// query outright, since the grammar may still accept syntactically valid
// stages the engine hasn't grown physical support for.
type UnsupportedExpression struct {
	Loc  expr.QueryLocation
	Kind string
}

func (e *UnsupportedExpression) Location() expr.QueryLocation { return e.Loc }
func (*UnsupportedExpression) isDataExpression()               {}

// Query is the fully parsed program: a signal scope and an ordered list
// of pipeline stages (`| stage | stage | …`).
type Query struct {
	Scope  SignalScope
	Stages []DataExpression
}
