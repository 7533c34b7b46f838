package expr

// LogicalOp is the closed set of logical/comparison operators a
// LogicalScalarExpression may carry (the Logical variant,
// generalized to cover the comparison operators the KQL `where` clause
// needs — the Discard(Not(predicate)) planning shape).
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalEquals
	LogicalNotEquals
	LogicalGreaterThan
	LogicalGreaterThanOrEqual
	LogicalLessThan
	LogicalLessThanOrEqual
)

// LogicalScalarExpression is a binary boolean-producing node: either a
// logical connective (And/Or) over two boolean operands, or a comparison
// over two scalar operands.
type LogicalScalarExpression struct {
	Loc   QueryLocation
	Op    LogicalOp
	Left  ScalarExpression
	Right ScalarExpression
}

var _ ScalarExpression = (*LogicalScalarExpression)(nil)

func (e *LogicalScalarExpression) Location() QueryLocation { return e.Loc }

func (e *LogicalScalarExpression) TryResolveValueType(ResolutionContext) (ValueType, bool) {
	return ValueTypeBoolean, true
}

func (e *LogicalScalarExpression) TryResolveStatic(ctx ResolutionContext) (*ResolvedStaticScalarExpression, *ValidationFailure, bool) {
	lv, lf, lok := e.Left.TryResolveStatic(ctx)
	if lf != nil {
		return nil, lf, false
	}
	if !lok {
		return nil, nil, false
	}

	if e.Op == LogicalAnd || e.Op == LogicalOr {
		lb, ok := lv.Value.(bool)
		if !ok {
			return nil, nil, false
		}
		// Short-circuit: And with a false left operand, or Or with a true
		// left operand, folds without needing the right operand.
		if e.Op == LogicalAnd && !lb {
			return &ResolvedStaticScalarExpression{Type: ValueTypeBoolean, Value: false}, nil, true
		}
		if e.Op == LogicalOr && lb {
			return &ResolvedStaticScalarExpression{Type: ValueTypeBoolean, Value: true}, nil, true
		}
		rv, rf, rok := e.Right.TryResolveStatic(ctx)
		if rf != nil {
			return nil, rf, false
		}
		if !rok {
			return nil, nil, false
		}
		rb, ok := rv.Value.(bool)
		if !ok {
			return nil, nil, false
		}
		if e.Op == LogicalAnd {
			return &ResolvedStaticScalarExpression{Type: ValueTypeBoolean, Value: lb && rb}, nil, true
		}
		return &ResolvedStaticScalarExpression{Type: ValueTypeBoolean, Value: lb || rb}, nil, true
	}

	rv, rf, rok := e.Right.TryResolveStatic(ctx)
	if rf != nil {
		return nil, rf, false
	}
	if !rok {
		return nil, nil, false
	}
	result, ok := compareResolved(e.Op, lv, rv)
	if !ok {
		return nil, nil, false
	}
	return &ResolvedStaticScalarExpression{Type: ValueTypeBoolean, Value: result}, nil, true
}

func compareResolved(op LogicalOp, l, r *ResolvedStaticScalarExpression) (bool, bool) {
	if lf, lIsInt, lok := asNumeric(l); lok {
		if rf, _, rok := asNumeric(r); rok {
			_ = lIsInt
			return compareFloat(op, lf, rf)
		}
		return false, false
	}
	if ls, ok := l.Value.(string); ok {
		if rs, ok := r.Value.(string); ok {
			return compareString(op, ls, rs)
		}
		return false, false
	}
	if op == LogicalEquals {
		return l.Value == r.Value, true
	}
	if op == LogicalNotEquals {
		return l.Value != r.Value, true
	}
	return false, false
}

func compareFloat(op LogicalOp, l, r float64) (bool, bool) {
	switch op {
	case LogicalEquals:
		return l == r, true
	case LogicalNotEquals:
		return l != r, true
	case LogicalGreaterThan:
		return l > r, true
	case LogicalGreaterThanOrEqual:
		return l >= r, true
	case LogicalLessThan:
		return l < r, true
	case LogicalLessThanOrEqual:
		return l <= r, true
	default:
		return false, false
	}
}

func compareString(op LogicalOp, l, r string) (bool, bool) {
	switch op {
	case LogicalEquals:
		return l == r, true
	case LogicalNotEquals:
		return l != r, true
	case LogicalGreaterThan:
		return l > r, true
	case LogicalGreaterThanOrEqual:
		return l >= r, true
	case LogicalLessThan:
		return l < r, true
	case LogicalLessThanOrEqual:
		return l <= r, true
	default:
		return false, false
	}
}

// NotExpression negates a boolean operand (the
// Discard(Not(predicate)) shape produced by `| where …`).
type NotExpression struct {
	Loc   QueryLocation
	Inner ScalarExpression
}

var _ ScalarExpression = (*NotExpression)(nil)

func (e *NotExpression) Location() QueryLocation { return e.Loc }

func (e *NotExpression) TryResolveValueType(ResolutionContext) (ValueType, bool) {
	return ValueTypeBoolean, true
}

func (e *NotExpression) TryResolveStatic(ctx ResolutionContext) (*ResolvedStaticScalarExpression, *ValidationFailure, bool) {
	v, f, ok := e.Inner.TryResolveStatic(ctx)
	if f != nil {
		return nil, f, false
	}
	if !ok {
		return nil, nil, false
	}
	b, ok := v.Value.(bool)
	if !ok {
		return nil, nil, false
	}
	return &ResolvedStaticScalarExpression{Type: ValueTypeBoolean, Value: !b}, nil, true
}
