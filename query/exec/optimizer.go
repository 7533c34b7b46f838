package exec

import (
	"fmt"

	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/otelcol-arrow-dataflow/engine/pdata/otap"
	"github.com/otelcol-arrow-dataflow/engine/query/plan"
)

// PhysicalPlanNode is the small closed tree this executor builds:
// DataSourceExecNode leaves feeding FilterExecNode parents. It stands in
// for the trait-object `ExecutionPlan`/`PipelineStage` hierarchy the
// allows implementing as a closed tagged enum.
type PhysicalPlanNode interface {
	isPhysicalPlanNode()
}

type DataSourceExecNode struct{ Exec *OtapDataSourceExec }

func (*DataSourceExecNode) isPhysicalPlanNode() {}

type FilterExecNode struct {
	Input PhysicalPlanNode
	Plan  plan.FilterPlan
}

func (*FilterExecNode) isPhysicalPlanNode() {}

// DataFusionPlanError mirrors the `DataFusionError::Plan`,
// raised when an incoming batch lacks a payload type a DataSourceExecNode
// requires.
type DataFusionPlanError struct {
	PayloadType otap.PayloadType
}

func (e *DataFusionPlanError) Error() string {
	return fmt.Sprintf("exec: incoming batch missing required payload type %s", e.PayloadType)
}

// UpdateDataSourceOptimizer walks a prepared plan and rewrites every
// OtapDataSourceExec to point at the next batch, recursively
// reconstructing parent nodes so per-batch state is reset.
func UpdateDataSourceOptimizer(root PhysicalPlanNode, next *otap.ArrowRecords, pool memory.Allocator) (PhysicalPlanNode, error) {
	switch n := root.(type) {
	case *DataSourceExecNode:
		rec, ok := next.Get(n.Exec.PayloadType)
		if !ok {
			return nil, &DataFusionPlanError{PayloadType: n.Exec.PayloadType}
		}
		if err := n.Exec.UpdateForNewBatch(rec); err != nil {
			return nil, err
		}
		return &DataSourceExecNode{Exec: n.Exec}, nil
	case *FilterExecNode:
		newInput, err := UpdateDataSourceOptimizer(n.Input, next, pool)
		if err != nil {
			return nil, err
		}
		return &FilterExecNode{Input: newInput, Plan: n.Plan}, nil
	default:
		return nil, fmt.Errorf("exec: unknown physical plan node %T", root)
	}
}
