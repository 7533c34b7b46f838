package exec

import (
	"fmt"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/otelcol-arrow-dataflow/engine/expr"
	"github.com/otelcol-arrow-dataflow/engine/query/plan"
)

// FilterExec evaluates a compiled plan.FilterPlan row-by-row against a
// record and materializes only the passing rows — the physical lowering
// of `Composite<FilterPlan>` named in the "Filter lowering"
// paragraph. Lacking a Go DataFusion to compile into logical/physical
// expressions, this evaluates the plan tree directly against the
// record's own columns.
type FilterExec struct {
	Input *OtapDataSourceExec
	Plan  plan.FilterPlan
}

// Run evaluates Plan against Input's current record and returns a new
// record containing only the passing rows.
func (f *FilterExec) Run(pool memory.Allocator) (arrow.Record, error) {
	rec := f.Input.CurrentRecord()
	mask, err := evaluate(f.Plan, rec)
	if err != nil {
		return nil, err
	}
	return selectRows(rec, mask, pool)
}

func evaluate(p plan.FilterPlan, rec arrow.Record) ([]bool, error) {
	switch n := p.(type) {
	case *plan.LeafFilterPlan:
		return evaluateLeaf(n.Predicate, rec)
	case *plan.AndFilterPlan:
		var result []bool
		for _, o := range n.Operands {
			m, err := evaluate(o, rec)
			if err != nil {
				return nil, err
			}
			result = andMask(result, m)
		}
		return result, nil
	case *plan.OrFilterPlan:
		var result []bool
		for _, o := range n.Operands {
			m, err := evaluate(o, rec)
			if err != nil {
				return nil, err
			}
			result = orMask(result, m)
		}
		return result, nil
	case *plan.NotFilterPlan:
		m, err := evaluate(n.Operand, rec)
		if err != nil {
			return nil, err
		}
		out := make([]bool, len(m))
		for i, v := range m {
			out[i] = !v
		}
		return out, nil
	case *plan.AttrsScanFilterPlan:
		return nil, fmt.Errorf("exec: attribute-table filter predicates are not yet supported by this executor (requires joining a separate attrs payload type)")
	default:
		return nil, fmt.Errorf("exec: unknown filter plan node %T", p)
	}
}

func andMask(a, b []bool) []bool {
	if a == nil {
		return b
	}
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] && b[i]
	}
	return out
}

func orMask(a, b []bool) []bool {
	if a == nil {
		return b
	}
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] || b[i]
	}
	return out
}

func evaluateLeaf(pred plan.FilterPredicate, rec arrow.Record) ([]bool, error) {
	if pred.Column.Kind != plan.AccessorColumnName {
		return nil, fmt.Errorf("exec: column kind %v not supported directly on a bare record (needs struct/attrs resolution upstream)", pred.Column.Kind)
	}
	idx, ok := fieldIndexByName(rec.Schema(), pred.Column.Name)
	if !ok {
		return nil, fmt.Errorf("exec: unknown column %q", pred.Column.Name)
	}
	n := int(rec.NumRows())
	out := make([]bool, n)

	switch pred.LiteralType {
	case plan.LiteralColumnStr:
		col, ok := rec.Column(idx).(*array.String)
		if !ok {
			return nil, fmt.Errorf("exec: column %q is not string-typed", pred.Column.Name)
		}
		lit, _ := pred.Literal.(string)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				continue
			}
			out[i] = compareStr(pred.Op, col.Value(i), lit)
		}
	case plan.LiteralColumnInt:
		col, ok := rec.Column(idx).(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("exec: column %q is not int64-typed", pred.Column.Name)
		}
		lit, _ := pred.Literal.(int64)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				continue
			}
			out[i] = compareNum(pred.Op, float64(col.Value(i)), float64(lit))
		}
	case plan.LiteralColumnDouble:
		col, ok := rec.Column(idx).(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("exec: column %q is not float64-typed", pred.Column.Name)
		}
		lit, _ := pred.Literal.(float64)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				continue
			}
			out[i] = compareNum(pred.Op, col.Value(i), lit)
		}
	case plan.LiteralColumnBool:
		col, ok := rec.Column(idx).(*array.Boolean)
		if !ok {
			return nil, fmt.Errorf("exec: column %q is not boolean-typed", pred.Column.Name)
		}
		lit, _ := pred.Literal.(bool)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				continue
			}
			out[i] = col.Value(i) == lit
		}
	default:
		return nil, fmt.Errorf("exec: unsupported literal column type %v", pred.LiteralType)
	}
	return out, nil
}

func compareStr(op expr.LogicalOp, a, b string) bool {
	switch op {
	case expr.LogicalEquals:
		return a == b
	case expr.LogicalNotEquals:
		return a != b
	case expr.LogicalGreaterThan:
		return a > b
	case expr.LogicalGreaterThanOrEqual:
		return a >= b
	case expr.LogicalLessThan:
		return a < b
	case expr.LogicalLessThanOrEqual:
		return a <= b
	default:
		return false
	}
}

func compareNum(op expr.LogicalOp, a, b float64) bool {
	switch op {
	case expr.LogicalEquals:
		return a == b
	case expr.LogicalNotEquals:
		return a != b
	case expr.LogicalGreaterThan:
		return a > b
	case expr.LogicalGreaterThanOrEqual:
		return a >= b
	case expr.LogicalLessThan:
		return a < b
	case expr.LogicalLessThanOrEqual:
		return a <= b
	default:
		return false
	}
}

// selectRows materializes a new record containing only the rows where
// mask is true, built column-by-column via type-specific builders.
func selectRows(rec arrow.Record, mask []bool, pool memory.Allocator) (arrow.Record, error) {
	schema := rec.Schema()
	cols := make([]arrow.Array, rec.NumCols())
	var numSelected int64
	for _, v := range mask {
		if v {
			numSelected++
		}
	}

	for c := 0; c < int(rec.NumCols()); c++ {
		col, err := selectColumn(rec.Column(c), mask, pool)
		if err != nil {
			return nil, err
		}
		cols[c] = col
	}
	return array.NewRecord(schema, cols, numSelected), nil
}

func selectColumn(col arrow.Array, mask []bool, pool memory.Allocator) (arrow.Array, error) {
	b := array.NewBuilder(pool, col.DataType())
	defer b.Release()

	switch typed := col.(type) {
	case *array.Int64:
		bb := b.(*array.Int64Builder)
		for i, keep := range mask {
			if !keep {
				continue
			}
			if typed.IsNull(i) {
				bb.AppendNull()
			} else {
				bb.Append(typed.Value(i))
			}
		}
	case *array.Float64:
		bb := b.(*array.Float64Builder)
		for i, keep := range mask {
			if !keep {
				continue
			}
			if typed.IsNull(i) {
				bb.AppendNull()
			} else {
				bb.Append(typed.Value(i))
			}
		}
	case *array.String:
		bb := b.(*array.StringBuilder)
		for i, keep := range mask {
			if !keep {
				continue
			}
			if typed.IsNull(i) {
				bb.AppendNull()
			} else {
				bb.Append(typed.Value(i))
			}
		}
	case *array.Boolean:
		bb := b.(*array.BooleanBuilder)
		for i, keep := range mask {
			if !keep {
				continue
			}
			if typed.IsNull(i) {
				bb.AppendNull()
			} else {
				bb.Append(typed.Value(i))
			}
		}
	case *array.Null:
		bb := b.(*array.NullBuilder)
		for _, keep := range mask {
			if keep {
				bb.AppendNull()
			}
		}
	default:
		return nil, fmt.Errorf("exec: unsupported column type %T for row selection", col)
	}
	return b.NewArray(), nil
}
