package exec

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelcol-arrow-dataflow/engine/kql"
	"github.com/otelcol-arrow-dataflow/engine/pdata/otap"
	"github.com/otelcol-arrow-dataflow/engine/query/plan"
)

func buildLogsBatch(t *testing.T, pool memory.Allocator, sevTexts ...string) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "severity_text", Type: arrow.BinaryTypes.String},
		{Name: "body", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()
	sevB := b.Field(0).(*array.StringBuilder)
	bodyB := b.Field(1).(*array.StringBuilder)
	for _, s := range sevTexts {
		sevB.Append(s)
		bodyB.AppendNull()
	}
	return b.NewRecord()
}

func TestS3FilterPlanEndToEnd(t *testing.T) {
	pool := memory.NewGoAllocator()
	rec := buildLogsBatch(t, pool, "INFO", "ERROR")
	defer rec.Release()

	q, err := kql.Parse(`logs | where severity_text == "ERROR"`)
	require.NoError(t, err)
	stages, err := plan.PlanStages(q, plan.SessionContext{}, nil)
	require.NoError(t, err)
	require.Len(t, stages, 1)

	ds := NewOtapDataSourceExec(otap.PayloadTypeLogs, rec, pool)
	defer ds.Release()

	filterStage := stages[0].(*plan.FilterPipelineStage)
	fe := &FilterExec{Input: ds, Plan: filterStage.Plan}

	out, err := fe.Run(pool)
	require.NoError(t, err)
	defer out.Release()

	assert.EqualValues(t, 1, out.NumRows())
	col := out.Column(0).(*array.String)
	assert.Equal(t, "ERROR", col.Value(0))
}

func TestSchemaCarryForwardS4(t *testing.T) {
	pool := memory.NewGoAllocator()

	schemaA := arrow.NewSchema([]arrow.Field{
		{Name: "severity_text", Type: arrow.BinaryTypes.String},
		{Name: "body", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "status_code", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	ba := array.NewRecordBuilder(pool, schemaA)
	ba.Field(0).(*array.StringBuilder).Append("INFO")
	ba.Field(1).(*array.StringBuilder).Append("hello")
	ba.Field(2).(*array.Int64Builder).Append(200)
	recA := ba.NewRecord()
	ba.Release()
	defer recA.Release()

	schemaB := arrow.NewSchema([]arrow.Field{
		{Name: "severity_text", Type: arrow.BinaryTypes.String},
		{Name: "status_code", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	bb := array.NewRecordBuilder(pool, schemaB)
	bb.Field(0).(*array.StringBuilder).Append("ERROR")
	bb.Field(1).(*array.Int64Builder).Append(500)
	recB := bb.NewRecord()
	bb.Release()
	defer recB.Release()

	ds := NewOtapDataSourceExec(otap.PayloadTypeLogs, recA, pool)
	defer ds.Release()
	require.Equal(t, []string{"severity_text", "body", "status_code"}, ds.Projection())

	err := ds.UpdateForNewBatch(recB)
	require.NoError(t, err)

	assert.Equal(t, []string{"severity_text", "body", "status_code"}, ds.Projection())
	updated := ds.CurrentRecord()
	assert.EqualValues(t, 1, updated.NumRows())

	bodyCol, ok := updated.Column(1).(*array.Null)
	require.True(t, ok)
	assert.EqualValues(t, 1, bodyCol.Len())

	statusCol := updated.Column(2).(*array.Int64)
	assert.EqualValues(t, 500, statusCol.Value(0))
}

func TestUpdateDataSourceOptimizerMissingPayloadType(t *testing.T) {
	pool := memory.NewGoAllocator()
	rec := buildLogsBatch(t, pool, "INFO")
	defer rec.Release()

	ds := NewOtapDataSourceExec(otap.PayloadTypeLogs, rec, pool)
	defer ds.Release()

	empty := otap.New(otap.SignalLogs)
	_, err := UpdateDataSourceOptimizer(&DataSourceExecNode{Exec: ds}, empty, pool)
	require.Error(t, err)
	var dfErr *DataFusionPlanError
	assert.ErrorAs(t, err, &dfErr)
}
