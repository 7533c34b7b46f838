package expr

// ResolutionContext carries whatever pipeline-level state static
// resolution needs: today only KnownColumns, which SourceScalarExpression
// consults for its value type; source-bound expressions still never fold
// to a static value, and every other node resolves independent of it.
// Kept as a named type so the resolution entry points below have a
// stable, extensible signature as pipeline state grows.
type ResolutionContext struct {
	// KnownColumns, if non-nil, lets SourceScalarExpression resolve a
	// value type when the referenced column's type is already known from
	// a prior batch's schema.
	KnownColumns map[string]ValueType
}

// ResolvedStaticScalarExpression is the output of a successful constant
// fold: a concrete value tagged with its ValueType.
type ResolvedStaticScalarExpression struct {
	Type  ValueType
	Value any
}

// ScalarExpression is the sum type every scalar AST node implements.
// TryResolveValueType/TryResolveStatic map directly onto
// TryResolveValueType/TryResolveStatic; the bool return models Rust's
// Option, the error return models a ValidationFailure diagnostic path
// that is orthogonal to "could not fold."
type ScalarExpression interface {
	Location() QueryLocation
	TryResolveValueType(ctx ResolutionContext) (ValueType, bool)
	TryResolveStatic(ctx ResolutionContext) (*ResolvedStaticScalarExpression, *ValidationFailure, bool)
}
