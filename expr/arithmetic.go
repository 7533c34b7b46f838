package expr

// ArithmeticOp is the closed set of binary arithmetic operators.
type ArithmeticOp int

const (
	ArithmeticAdd ArithmeticOp = iota
	ArithmeticSubtract
	ArithmeticMultiply
	ArithmeticDivide
	ArithmeticModulo
)

func (op ArithmeticOp) String() string {
	switch op {
	case ArithmeticAdd:
		return "+"
	case ArithmeticSubtract:
		return "-"
	case ArithmeticMultiply:
		return "*"
	case ArithmeticDivide:
		return "/"
	case ArithmeticModulo:
		return "%"
	default:
		return "?"
	}
}

// ArithmeticScalarExpression is a binary arithmetic node.
type ArithmeticScalarExpression struct {
	Loc   QueryLocation
	Op    ArithmeticOp
	Left  ScalarExpression
	Right ScalarExpression
}

var _ ScalarExpression = (*ArithmeticScalarExpression)(nil)

func (e *ArithmeticScalarExpression) Location() QueryLocation { return e.Loc }

// TryResolveValueType resolves the result type: unknown operand
// => Unknown; Divide always Double; Modulo resolves only when both
// operands are Integer, else None; Add/Subtract/Multiply stay Integer
// when both operands are Integer, else Double.
func (e *ArithmeticScalarExpression) TryResolveValueType(ctx ResolutionContext) (ValueType, bool) {
	lt, lok := e.Left.TryResolveValueType(ctx)
	rt, rok := e.Right.TryResolveValueType(ctx)
	if !lok || !rok {
		return ValueTypeUnknown, true
	}
	if lt == ValueTypeUnknown || rt == ValueTypeUnknown {
		return ValueTypeUnknown, true
	}

	bothInt := lt == ValueTypeInteger && rt == ValueTypeInteger

	switch e.Op {
	case ArithmeticModulo:
		if bothInt {
			return ValueTypeInteger, true
		}
		return ValueTypeUnknown, false
	case ArithmeticDivide:
		return ValueTypeDouble, true
	default:
		if bothInt {
			return ValueTypeInteger, true
		}
		return ValueTypeDouble, true
	}
}

// TryResolveStatic folds the expression when both operands fold to
// numeric static values. Division/modulo by the literal zero produces a
// ValidationFailure rather than folding.
func (e *ArithmeticScalarExpression) TryResolveStatic(ctx ResolutionContext) (*ResolvedStaticScalarExpression, *ValidationFailure, bool) {
	lv, lf, lok := e.Left.TryResolveStatic(ctx)
	if lf != nil {
		return nil, lf, false
	}
	if !lok {
		return nil, nil, false
	}
	rv, rf, rok := e.Right.TryResolveStatic(ctx)
	if rf != nil {
		return nil, rf, false
	}
	if !rok {
		return nil, nil, false
	}

	lf64, lIsInt, lOk := asNumeric(lv)
	rf64, rIsInt, rOk := asNumeric(rv)
	if !lOk || !rOk {
		return nil, nil, false
	}

	bothInt := lIsInt && rIsInt

	switch e.Op {
	case ArithmeticDivide:
		if rf64 == 0 {
			return nil, &ValidationFailure{Location: e.Loc, Message: "division by zero"}, false
		}
		return &ResolvedStaticScalarExpression{Type: ValueTypeDouble, Value: lf64 / rf64}, nil, true
	case ArithmeticModulo:
		if !bothInt {
			return nil, nil, false
		}
		ri := int64(rf64)
		if ri == 0 {
			return nil, &ValidationFailure{Location: e.Loc, Message: "modulo by zero"}, false
		}
		return &ResolvedStaticScalarExpression{Type: ValueTypeInteger, Value: int64(lf64) % ri}, nil, true
	case ArithmeticAdd:
		return combineNumeric(bothInt, lf64+rf64), nil, true
	case ArithmeticSubtract:
		return combineNumeric(bothInt, lf64-rf64), nil, true
	case ArithmeticMultiply:
		return combineNumeric(bothInt, lf64*rf64), nil, true
	default:
		return nil, nil, false
	}
}

func combineNumeric(bothInt bool, v float64) *ResolvedStaticScalarExpression {
	if bothInt {
		return &ResolvedStaticScalarExpression{Type: ValueTypeInteger, Value: int64(v)}
	}
	return &ResolvedStaticScalarExpression{Type: ValueTypeDouble, Value: v}
}

func asNumeric(v *ResolvedStaticScalarExpression) (value float64, isInt bool, ok bool) {
	switch n := v.Value.(type) {
	case int64:
		return float64(n), true, true
	case float64:
		return n, false, true
	default:
		return 0, false, false
	}
}
