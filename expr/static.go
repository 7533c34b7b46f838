package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// StaticScalarExpression is a literal value node. It always
// resolves to itself — both partial-evaluation entry points are total for
// this variant.
type StaticScalarExpression struct {
	Loc   QueryLocation
	Type  ValueType
	Value any
}

var _ ScalarExpression = (*StaticScalarExpression)(nil)

func (e *StaticScalarExpression) Location() QueryLocation { return e.Loc }

func (e *StaticScalarExpression) TryResolveValueType(ResolutionContext) (ValueType, bool) {
	return e.Type, true
}

func (e *StaticScalarExpression) TryResolveStatic(ResolutionContext) (*ResolvedStaticScalarExpression, *ValidationFailure, bool) {
	return &ResolvedStaticScalarExpression{Type: e.Type, Value: e.Value}, nil, true
}

func NewStringStatic(loc QueryLocation, v string) *StaticScalarExpression {
	return &StaticScalarExpression{Loc: loc, Type: ValueTypeString, Value: v}
}

func NewIntegerStatic(loc QueryLocation, v int64) *StaticScalarExpression {
	return &StaticScalarExpression{Loc: loc, Type: ValueTypeInteger, Value: v}
}

func NewDoubleStatic(loc QueryLocation, v float64) *StaticScalarExpression {
	return &StaticScalarExpression{Loc: loc, Type: ValueTypeDouble, Value: v}
}

func NewBooleanStatic(loc QueryLocation, v bool) *StaticScalarExpression {
	return &StaticScalarExpression{Loc: loc, Type: ValueTypeBoolean, Value: v}
}

func NewNullStatic(loc QueryLocation) *StaticScalarExpression {
	return &StaticScalarExpression{Loc: loc, Type: ValueTypeNull, Value: nil}
}

func NewArrayStatic(loc QueryLocation, v []any) *StaticScalarExpression {
	return &StaticScalarExpression{Loc: loc, Type: ValueTypeArray, Value: v}
}

func NewMapStatic(loc QueryLocation, v map[string]any) *StaticScalarExpression {
	return &StaticScalarExpression{Loc: loc, Type: ValueTypeMap, Value: v}
}

func NewRegexStatic(loc QueryLocation, v *regexp.Regexp) *StaticScalarExpression {
	return &StaticScalarExpression{Loc: loc, Type: ValueTypeRegex, Value: v}
}

// FromJSON constructs a StaticScalarExpression from an arbitrary JSON
// value, total and deterministic over the standard JSON type lattice
//: numbers without a fractional part or exponent become
// Integer, everything else numeric becomes Double, matching
// encoding/json's float64-by-default decoding distinguished via
// json.Number when parsed with UseNumber.
func FromJSON(loc QueryLocation, raw []byte) (*StaticScalarExpression, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("expr: from_json: %w", err)
	}
	return &StaticScalarExpression{Loc: loc, Type: valueTypeOfJSON(v), Value: normalizeJSON(v)}, nil
}

func valueTypeOfJSON(v any) ValueType {
	switch t := v.(type) {
	case nil:
		return ValueTypeNull
	case bool:
		return ValueTypeBoolean
	case string:
		return ValueTypeString
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return ValueTypeInteger
		}
		return ValueTypeDouble
	case []any:
		return ValueTypeArray
	case map[string]any:
		return ValueTypeMap
	default:
		return ValueTypeUnknown
	}
}

// normalizeJSON converts json.Number leaves into int64/float64 so
// downstream arithmetic doesn't need to special-case json.Number.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeJSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeJSON(e)
		}
		return out
	default:
		return v
	}
}
