package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(n int) QueryLocation { return QueryLocation{Start: 0, End: n} }

func TestArithmeticIntegerStaysInteger(t *testing.T) {
	e := &ArithmeticScalarExpression{
		Loc: loc(1), Op: ArithmeticAdd,
		Left: NewIntegerStatic(loc(1), 2), Right: NewIntegerStatic(loc(1), 3),
	}
	vt, ok := e.TryResolveValueType(ResolutionContext{})
	require.True(t, ok)
	assert.Equal(t, ValueTypeInteger, vt)

	v, failure, ok := e.TryResolveStatic(ResolutionContext{})
	require.Nil(t, failure)
	require.True(t, ok)
	assert.EqualValues(t, 5, v.Value)
}

func TestArithmeticMixedPromotesToDouble(t *testing.T) {
	e := &ArithmeticScalarExpression{
		Loc: loc(1), Op: ArithmeticMultiply,
		Left: NewIntegerStatic(loc(1), 2), Right: NewDoubleStatic(loc(1), 1.5),
	}
	vt, ok := e.TryResolveValueType(ResolutionContext{})
	require.True(t, ok)
	assert.Equal(t, ValueTypeDouble, vt)

	v, failure, ok := e.TryResolveStatic(ResolutionContext{})
	require.Nil(t, failure)
	require.True(t, ok)
	assert.EqualValues(t, 3.0, v.Value)
}

func TestDivideAlwaysDouble(t *testing.T) {
	e := &ArithmeticScalarExpression{
		Loc: loc(1), Op: ArithmeticDivide,
		Left: NewIntegerStatic(loc(1), 4), Right: NewIntegerStatic(loc(1), 2),
	}
	vt, ok := e.TryResolveValueType(ResolutionContext{})
	require.True(t, ok)
	assert.Equal(t, ValueTypeDouble, vt)
}

func TestModuloMixedIsNotResolvable(t *testing.T) {
	e := &ArithmeticScalarExpression{
		Loc: loc(1), Op: ArithmeticModulo,
		Left: NewDoubleStatic(loc(1), 4), Right: NewIntegerStatic(loc(1), 2),
	}
	_, ok := e.TryResolveValueType(ResolutionContext{})
	assert.False(t, ok)
}

func TestDivisionByZeroValidationFailure(t *testing.T) {
	e := &ArithmeticScalarExpression{
		Loc: loc(7), Op: ArithmeticDivide,
		Left: NewIntegerStatic(loc(7), 1), Right: NewIntegerStatic(loc(7), 0),
	}
	v, failure, ok := e.TryResolveStatic(ResolutionContext{})
	assert.Nil(t, v)
	assert.False(t, ok)
	require.NotNil(t, failure)
	assert.Equal(t, loc(7), failure.Location)
}

func TestModuloByZeroValidationFailure(t *testing.T) {
	e := &ArithmeticScalarExpression{
		Loc: loc(9), Op: ArithmeticModulo,
		Left: NewIntegerStatic(loc(9), 5), Right: NewIntegerStatic(loc(9), 0),
	}
	_, failure, ok := e.TryResolveStatic(ResolutionContext{})
	assert.False(t, ok)
	require.NotNil(t, failure)
}

func TestUnknownOperandResolvesUnknown(t *testing.T) {
	src := &SourceScalarExpression{Loc: loc(1), Column: "attributes.foo"}
	e := &ArithmeticScalarExpression{
		Loc: loc(1), Op: ArithmeticAdd,
		Left: src, Right: NewIntegerStatic(loc(1), 1),
	}
	vt, ok := e.TryResolveValueType(ResolutionContext{})
	assert.True(t, ok)
	assert.Equal(t, ValueTypeUnknown, vt)
}

func TestFromJSONTotalConstruction(t *testing.T) {
	e, err := FromJSON(loc(1), []byte(`{"a": [1, 2.5, "x", true, null]}`))
	require.NoError(t, err)
	assert.Equal(t, ValueTypeMap, e.Type)
	m := e.Value.(map[string]any)
	arr := m["a"].([]any)
	assert.EqualValues(t, 1, arr[0])
	assert.EqualValues(t, 2.5, arr[1])
}

func TestLogicalAndShortCircuit(t *testing.T) {
	e := &LogicalScalarExpression{
		Loc: loc(1), Op: LogicalAnd,
		Left: NewBooleanStatic(loc(1), false), Right: NewIntegerStatic(loc(1), 1), // wrong type on right, never evaluated
	}
	v, failure, ok := e.TryResolveStatic(ResolutionContext{})
	require.Nil(t, failure)
	require.True(t, ok)
	assert.Equal(t, false, v.Value)
}

func TestNotNegatesBoolean(t *testing.T) {
	e := &NotExpression{Loc: loc(1), Inner: NewBooleanStatic(loc(1), true)}
	v, failure, ok := e.TryResolveStatic(ResolutionContext{})
	require.Nil(t, failure)
	require.True(t, ok)
	assert.Equal(t, false, v.Value)
}

func TestComparisonGreaterThan(t *testing.T) {
	e := &LogicalScalarExpression{
		Loc: loc(1), Op: LogicalGreaterThan,
		Left: NewIntegerStatic(loc(1), 5), Right: NewIntegerStatic(loc(1), 3),
	}
	v, failure, ok := e.TryResolveStatic(ResolutionContext{})
	require.Nil(t, failure)
	require.True(t, ok)
	assert.Equal(t, true, v.Value)
}
