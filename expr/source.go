package expr

// SourceScalarExpression reads a value out of the record currently being
// evaluated (an attribute, a resource/scope struct field, a bare column).
// It never folds to a static value — its value depends on the row under
// evaluation — but its value type can sometimes be inferred in advance
// when the caller's ResolutionContext already knows the column's type
// from a prior batch's schema.
type SourceScalarExpression struct {
	Loc    QueryLocation
	Column string
}

var _ ScalarExpression = (*SourceScalarExpression)(nil)

func (e *SourceScalarExpression) Location() QueryLocation { return e.Loc }

func (e *SourceScalarExpression) TryResolveValueType(ctx ResolutionContext) (ValueType, bool) {
	if ctx.KnownColumns == nil {
		return ValueTypeUnknown, false
	}
	t, ok := ctx.KnownColumns[e.Column]
	return t, ok
}

func (e *SourceScalarExpression) TryResolveStatic(ResolutionContext) (*ResolvedStaticScalarExpression, *ValidationFailure, bool) {
	return nil, nil, false
}
