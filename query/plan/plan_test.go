package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelcol-arrow-dataflow/engine/kql"
)

func TestPlanStagesS3FilterShape(t *testing.T) {
	q, err := kql.Parse(`logs | where severity_text == "ERROR"`)
	require.NoError(t, err)

	stages, err := PlanStages(q, SessionContext{}, nil)
	require.NoError(t, err)
	require.Len(t, stages, 1)

	filterStage, ok := stages[0].(*FilterPipelineStage)
	require.True(t, ok)

	leaf, ok := filterStage.Plan.(*LeafFilterPlan)
	require.True(t, ok)
	assert.Equal(t, AccessorColumnName, leaf.Predicate.Column.Kind)
	assert.Equal(t, "severity_text", leaf.Predicate.Column.Name)
	assert.Equal(t, "ERROR", leaf.Predicate.Literal)
}

func TestPlanStagesInvalidScope(t *testing.T) {
	// Build a Query by hand with an out-of-range scope to exercise the
	// invalid-config path without needing a real unknown-scope parse
	// (the kql parser itself already rejects unknown scope identifiers).
	q := &kql.Query{Scope: kql.SignalScope(99)}
	_, err := PlanStages(q, SessionContext{}, nil)
	require.Error(t, err)
	var cfgErr *ErrInvalidUserConfig
	assert.ErrorAs(t, err, &cfgErr)
}

func TestAttrsFilterCombineCoalescesSiblingScans(t *testing.T) {
	q, err := kql.Parse(`logs | where attributes["a"] == "x" and attributes["b"] == "y"`)
	require.NoError(t, err)

	stages, err := PlanStages(q, SessionContext{}, nil)
	require.NoError(t, err)
	filterStage := stages[0].(*FilterPipelineStage)

	scan, ok := filterStage.Plan.(*AttrsScanFilterPlan)
	require.True(t, ok)
	assert.Equal(t, AttrScopeRoot, scan.Scope)
	assert.Len(t, scan.Predicates, 2)
}

func TestResolveColumnAccessorVariants(t *testing.T) {
	cases := []struct {
		path string
		kind AccessorKind
	}{
		{"severity_text", AccessorColumnName},
		{`attributes["k"]`, AccessorAttributes},
		{"resource.service.name", AccessorStructCol},
		{"scope.name", AccessorStructCol},
	}
	for _, c := range cases {
		acc, err := ResolveColumnAccessor(c.path)
		require.NoError(t, err, c.path)
		assert.Equal(t, c.kind, acc.Kind, c.path)
	}
}
