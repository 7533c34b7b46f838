package plan

import (
	"fmt"

	"github.com/otelcol-arrow-dataflow/engine/expr"
	"github.com/otelcol-arrow-dataflow/engine/kql"
	"github.com/otelcol-arrow-dataflow/engine/pdata/otap"
)

// ErrInvalidUserConfig is returned when a query's leading identifier does
// not name a known signal scope.
type ErrInvalidUserConfig struct {
	Text string
}

func (e *ErrInvalidUserConfig) Error() string {
	return fmt.Sprintf("plan: invalid signal scope %q", e.Text)
}

// SessionContext carries whatever planner-global state is needed across
// PlanStages calls; currently empty — reserved for future extension
// (e.g. a shared attribute dictionary), threaded through the way
// `component.Host` is threaded through receiver/processor construction
// without every current call site needing it.
type SessionContext struct{}

// PipelineStage is the sum type of physical stages PlanStages may
// produce. FilterPipelineStage is the only kind currently
// planned to completion.
type PipelineStage interface {
	isPipelineStage()
}

// FilterPipelineStage discards rows failing Plan, after
// AttrsFilterCombineOptimizerRule has coalesced sibling attribute scans.
type FilterPipelineStage struct {
	Plan FilterPlan
}

func (*FilterPipelineStage) isPipelineStage() {}

// PlanStages compiles a parsed query into physical pipeline stages.
// firstBatch is accepted for schema
// carry-forward context even though the filter-only planner
// implemented here does not yet consult it.
func PlanStages(q *kql.Query, _ SessionContext, _ *otap.ArrowRecords) ([]PipelineStage, error) {
	if !validScope(q.Scope) {
		return nil, &ErrInvalidUserConfig{Text: q.Scope.String()}
	}

	var stages []PipelineStage
	for _, stage := range q.Stages {
		switch s := stage.(type) {
		case *kql.DiscardExpression:
			// The canonical shape produced by `| where <cond>` is
			// Discard(Not(cond)): discard rows where NOT(cond) holds,
			// i.e. keep rows matching cond. The filter plan we compile
			// and hand to the executor expresses the keep-predicate
			// directly, so unwrap the one structural Not the parser
			// always wraps it in.
			notExpr, ok := s.Predicate.(*expr.NotExpression)
			if !ok {
				return nil, &NotYetSupportedError{Location: s.Location(), Detail: "discard predicate is not in canonical Not(cond) form"}
			}
			rawPlan, err := BuildFilterPlan(notExpr.Inner)
			if err != nil {
				return nil, err
			}
			optimized := AttrsFilterCombineOptimizerRule(rawPlan)
			stages = append(stages, &FilterPipelineStage{Plan: optimized})
		case *kql.UnsupportedExpression:
			return nil, &NotYetSupportedError{Location: s.Location(), Detail: "stage kind " + s.Kind}
		default:
			return nil, &NotYetSupportedError{Location: stage.Location(), Detail: "unknown DataExpression kind"}
		}
	}
	return stages, nil
}

func validScope(s kql.SignalScope) bool {
	switch s {
	case kql.SignalScopeLogs, kql.SignalScopeTraces, kql.SignalScopeMetrics, kql.SignalScopeAll:
		return true
	default:
		return false
	}
}
