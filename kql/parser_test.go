package kql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelcol-arrow-dataflow/engine/expr"
)

func TestParseWhereFilterLogs(t *testing.T) {
	q, err := Parse(`logs | where severity_text == "ERROR"`)
	require.NoError(t, err)
	assert.Equal(t, SignalScopeLogs, q.Scope)
	require.Len(t, q.Stages, 1)

	discard, ok := q.Stages[0].(*DiscardExpression)
	require.True(t, ok)

	notExpr, ok := discard.Predicate.(*expr.NotExpression)
	require.True(t, ok)

	cmp, ok := notExpr.Inner.(*expr.LogicalScalarExpression)
	require.True(t, ok)
	assert.Equal(t, expr.LogicalEquals, cmp.Op)

	col, ok := cmp.Left.(*expr.SourceScalarExpression)
	require.True(t, ok)
	assert.Equal(t, "severity_text", col.Column)

	lit, ok := cmp.Right.(*expr.StaticScalarExpression)
	require.True(t, ok)
	assert.Equal(t, "ERROR", lit.Value)
}

func TestParseAttributeAccessor(t *testing.T) {
	q, err := Parse(`logs | where attributes["http.status_code"] == 500`)
	require.NoError(t, err)
	discard := q.Stages[0].(*DiscardExpression)
	notExpr := discard.Predicate.(*expr.NotExpression)
	cmp := notExpr.Inner.(*expr.LogicalScalarExpression)
	col := cmp.Left.(*expr.SourceScalarExpression)
	assert.Equal(t, `attributes["http.status_code"]`, col.Column)
}

func TestParseResourceAttributeAccessor(t *testing.T) {
	q, err := Parse(`traces | where resource.attributes["service.name"] == "checkout"`)
	require.NoError(t, err)
	assert.Equal(t, SignalScopeTraces, q.Scope)
}

func TestParseUnknownScope(t *testing.T) {
	_, err := Parse(`bogus | where true`)
	require.Error(t, err)
	var synErr *SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestParseJSONFoldsToArray(t *testing.T) {
	q, err := Parse(`logs | where parse_json('[1,2,3]') != null`)
	require.NoError(t, err)
	discard := q.Stages[0].(*DiscardExpression)
	notExpr := discard.Predicate.(*expr.NotExpression)
	cmp := notExpr.Inner.(*expr.LogicalScalarExpression)
	lit := cmp.Left.(*expr.StaticScalarExpression)
	assert.Equal(t, expr.ValueTypeArray, lit.Type)
}

func TestParseJSONWrongOperandDiagnostic(t *testing.T) {
	_, err := Parse(`logs | where parse_json(123) == null`)
	require.Error(t, err)
	var diag *QueryLanguageDiagnostic
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, DiagStringExpected, diag.DiagnosticID)
}

func TestArrayConcatWrongOperandDiagnostic(t *testing.T) {
	_, err := Parse(`logs | where array_concat(parse_json('[1]'), "x") != null`)
	require.Error(t, err)
	var diag *QueryLanguageDiagnostic
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, DiagArrayExpected, diag.DiagnosticID)
}

func TestArithmeticInWhere(t *testing.T) {
	q, err := Parse(`logs | where 1 + 2 == 3`)
	require.NoError(t, err)
	discard := q.Stages[0].(*DiscardExpression)
	notExpr := discard.Predicate.(*expr.NotExpression)
	cmp := notExpr.Inner.(*expr.LogicalScalarExpression)
	add, ok := cmp.Left.(*expr.ArithmeticScalarExpression)
	require.True(t, ok)
	assert.Equal(t, expr.ArithmeticAdd, add.Op)
}

func TestUnsupportedStageKind(t *testing.T) {
	q, err := Parse(`logs | summarize count()`)
	require.NoError(t, err)
	_, ok := q.Stages[0].(*UnsupportedExpression)
	assert.True(t, ok)
}
