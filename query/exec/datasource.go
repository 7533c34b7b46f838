// Package exec implements the columnar physical executor: a
// hand-written DataSourceExec/FilterExec pair built directly over
// apache/arrow/go/v12, since no Go port of DataFusion exists to wrap
// instead (documented in DESIGN.md as the one place this core writes
// its own physical-operator layer rather than gluing to an existing
// query-engine dependency).
package exec

import (
	"fmt"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/otelcol-arrow-dataflow/engine/pdata/otap"
)

// OtapDataSourceExec wraps a memory-backed record-batch source for one
// ArrowPayloadType, carrying a stable projection across successive
// batches whose schemas may drift.
type OtapDataSourceExec struct {
	PayloadType otap.PayloadType
	pool        memory.Allocator

	current    arrow.Record
	projection []string // field names, in the stable order the plan is wired for
}

// NewOtapDataSourceExec wires the executor to its first batch. The
// projection starts as the batch's own field order.
func NewOtapDataSourceExec(pt otap.PayloadType, first arrow.Record, pool memory.Allocator) *OtapDataSourceExec {
	names := make([]string, first.Schema().NumFields())
	for i, f := range first.Schema().Fields() {
		names[i] = f.Name
	}
	first.Retain()
	return &OtapDataSourceExec{PayloadType: pt, pool: pool, current: first, projection: names}
}

// CurrentRecord returns the record currently wired to the executor.
func (e *OtapDataSourceExec) CurrentRecord() arrow.Record { return e.current }

// Projection returns the stable field-name order the plan is wired for.
func (e *OtapDataSourceExec) Projection() []string { return e.projection }

// Release drops the executor's reference to its current record.
func (e *OtapDataSourceExec) Release() {
	if e.current != nil {
		e.current.Release()
		e.current = nil
	}
}

// UpdateForNewBatch rewires the executor to a new batch, recomputing the
// projection per the three rules:
//  1. Preserve the order of columns the plan has already been wired for.
//  2. For each previously projected field, match by name at the same
//     position first; else search by name; else insert a null-valued
//     placeholder column spanning all rows at that field's position in
//     the projection.
//  3. Append any previously-absent new-batch columns at the end.
func (e *OtapDataSourceExec) UpdateForNewBatch(next arrow.Record) error {
	if next == nil {
		return fmt.Errorf("exec: UpdateForNewBatch: nil record")
	}
	nextSchema := next.Schema()
	numRows := next.NumRows()

	usedFromNext := make(map[int]bool, nextSchema.NumFields())
	resolvedCols := make([]arrow.Array, 0, len(e.projection))
	resolvedFields := make([]arrow.Field, 0, len(e.projection))

	for i, name := range e.projection {
		// Rule 2a: same position first.
		if i < int(nextSchema.NumFields()) && nextSchema.Field(i).Name == name {
			resolvedCols = append(resolvedCols, next.Column(i))
			resolvedFields = append(resolvedFields, nextSchema.Field(i))
			usedFromNext[i] = true
			continue
		}
		// Rule 2b: search by name anywhere in the new schema.
		if idx, ok := fieldIndexByName(nextSchema, name); ok {
			resolvedCols = append(resolvedCols, next.Column(idx))
			resolvedFields = append(resolvedFields, nextSchema.Field(idx))
			usedFromNext[idx] = true
			continue
		}
		// Rule 2c: null placeholder, same field name, same shape as
		// before but carrying no data for this batch.
		placeholder, field, err := nullPlaceholderColumn(e.pool, name, numRows)
		if err != nil {
			return err
		}
		resolvedCols = append(resolvedCols, placeholder)
		resolvedFields = append(resolvedFields, field)
	}

	// Rule 3: append previously-absent new-batch columns at the end.
	for i := 0; i < int(nextSchema.NumFields()); i++ {
		if usedFromNext[i] {
			continue
		}
		resolvedCols = append(resolvedCols, next.Column(i))
		resolvedFields = append(resolvedFields, nextSchema.Field(i))
	}

	newProjection := make([]string, len(resolvedFields))
	for i, f := range resolvedFields {
		newProjection[i] = f.Name
	}

	projectedSchema := arrow.NewSchema(resolvedFields, nil)
	projected := array.NewRecord(projectedSchema, resolvedCols, numRows)

	e.Release()
	e.current = projected
	e.projection = newProjection
	return nil
}

func fieldIndexByName(schema *arrow.Schema, name string) (int, bool) {
	for i := 0; i < int(schema.NumFields()); i++ {
		if schema.Field(i).Name == name {
			return i, true
		}
	}
	return 0, false
}

// nullPlaceholderColumn builds an all-null column of length n using
// Arrow's dedicated Null type rather than a typed null array, since the
// vanished field's original type is not recoverable once the column that
// carried it is gone from the new batch. The result is a plain Null
// array; it is not run-end encoded.
func nullPlaceholderColumn(pool memory.Allocator, name string, n int64) (arrow.Array, arrow.Field, error) {
	b := array.NewBuilder(pool, arrow.Null)
	nb, ok := b.(*array.NullBuilder)
	if !ok {
		return nil, arrow.Field{}, fmt.Errorf("exec: expected *array.NullBuilder, got %T", b)
	}
	defer nb.Release()
	for i := int64(0); i < n; i++ {
		nb.AppendNull()
	}
	arr := nb.NewArray()
	return arr, arrow.Field{Name: name, Type: arrow.Null, Nullable: true}, nil
}
