package plan

import (
	"fmt"

	"github.com/otelcol-arrow-dataflow/engine/expr"
)

// LiteralColumn is the closed set of typed columns an attributes table
// exposes, selected by the static literal's type on the other side of a
// comparison.
type LiteralColumn int

const (
	LiteralColumnStr LiteralColumn = iota
	LiteralColumnInt
	LiteralColumnDouble
	LiteralColumnBool
)

// FilterPredicate is a single leaf comparison: a resolved column against
// a static literal.
type FilterPredicate struct {
	Column      ColumnAccessor
	Op          expr.LogicalOp
	LiteralType LiteralColumn
	Literal     any
}

// FilterPlan is a sum type over three shapes: a leaf predicate, a
// boolean combination of sub-plans, or (after optimization) a coalesced
// multi-predicate attribute scan.
type FilterPlan interface {
	isFilterPlan()
}

type LeafFilterPlan struct{ Predicate FilterPredicate }

func (*LeafFilterPlan) isFilterPlan() {}

type AndFilterPlan struct{ Operands []FilterPlan }

func (*AndFilterPlan) isFilterPlan() {}

type OrFilterPlan struct{ Operands []FilterPlan }

func (*OrFilterPlan) isFilterPlan() {}

type NotFilterPlan struct{ Operand FilterPlan }

func (*NotFilterPlan) isFilterPlan() {}

// AttrsScanFilterPlan is the output of AttrsFilterCombineOptimizerRule:
// several attribute comparisons against the same (scope) attributes
// table, coalesced into one scan rather than N.
type AttrsScanFilterPlan struct {
	Scope      AttrScope
	Predicates []FilterPredicate
}

func (*AttrsScanFilterPlan) isFilterPlan() {}

// NotYetSupportedError is returned for DataExpression/comparison shapes
// this planner does not compile.
type NotYetSupportedError struct {
	Location expr.QueryLocation
	Detail   string
}

func (e *NotYetSupportedError) Error() string {
	return fmt.Sprintf("not yet supported at %s: %s", e.Location, e.Detail)
}

// BuildFilterPlan compiles a boolean ScalarExpression (the predicate
// inside a Discard(Not(predicate)) stage) into a FilterPlan.
func BuildFilterPlan(e expr.ScalarExpression) (FilterPlan, error) {
	switch n := e.(type) {
	case *expr.LogicalScalarExpression:
		switch n.Op {
		case expr.LogicalAnd:
			l, err := BuildFilterPlan(n.Left)
			if err != nil {
				return nil, err
			}
			r, err := BuildFilterPlan(n.Right)
			if err != nil {
				return nil, err
			}
			return &AndFilterPlan{Operands: []FilterPlan{l, r}}, nil
		case expr.LogicalOr:
			l, err := BuildFilterPlan(n.Left)
			if err != nil {
				return nil, err
			}
			r, err := BuildFilterPlan(n.Right)
			if err != nil {
				return nil, err
			}
			return &OrFilterPlan{Operands: []FilterPlan{l, r}}, nil
		default:
			return buildComparisonLeaf(n)
		}
	case *expr.NotExpression:
		inner, err := BuildFilterPlan(n.Inner)
		if err != nil {
			return nil, err
		}
		return &NotFilterPlan{Operand: inner}, nil
	default:
		return nil, &NotYetSupportedError{Location: e.Location(), Detail: "predicate is not a logical/comparison expression"}
	}
}

func buildComparisonLeaf(n *expr.LogicalScalarExpression) (FilterPlan, error) {
	col, lit, err := splitColumnAndLiteral(n.Left, n.Right)
	if err != nil {
		return nil, err
	}
	accessor, err := ResolveColumnAccessor(col.Column)
	if err != nil {
		return nil, &NotYetSupportedError{Location: n.Loc, Detail: err.Error()}
	}
	litCol, val, err := literalColumnOf(lit)
	if err != nil {
		return nil, &NotYetSupportedError{Location: n.Loc, Detail: err.Error()}
	}
	return &LeafFilterPlan{Predicate: FilterPredicate{
		Column: accessor, Op: n.Op, LiteralType: litCol, Literal: val,
	}}, nil
}

func splitColumnAndLiteral(left, right expr.ScalarExpression) (*expr.SourceScalarExpression, *expr.StaticScalarExpression, error) {
	if c, ok := left.(*expr.SourceScalarExpression); ok {
		if s, ok := right.(*expr.StaticScalarExpression); ok {
			return c, s, nil
		}
	}
	if c, ok := right.(*expr.SourceScalarExpression); ok {
		if s, ok := left.(*expr.StaticScalarExpression); ok {
			return c, s, nil
		}
	}
	return nil, nil, fmt.Errorf("plan: comparison must be between a column and a literal")
}

func literalColumnOf(s *expr.StaticScalarExpression) (LiteralColumn, any, error) {
	switch s.Type {
	case expr.ValueTypeString:
		return LiteralColumnStr, s.Value, nil
	case expr.ValueTypeInteger:
		return LiteralColumnInt, s.Value, nil
	case expr.ValueTypeDouble:
		return LiteralColumnDouble, s.Value, nil
	case expr.ValueTypeBoolean:
		return LiteralColumnBool, s.Value, nil
	default:
		return 0, nil, fmt.Errorf("plan: literal type %s has no matching attribute column", s.Type)
	}
}
