// Package plan implements query planning: turning a parsed
// KQL query into a small set of physical PipelineStages, resolving
// ColumnAccessor paths, and running the AttrsFilterCombineOptimizerRule
// over filter predicates. Grounded on
// `pkg/otel/common/arrow/dyn_attrs.go`'s parent-ID/attribute-table
// modeling (root vs non-root attribute scopes map onto that file's
// ParentID addressing), generalized to a closed column-resolution
// grammar.
package plan

import (
	"fmt"
	"strings"
)

// AttrScope identifies which attributes table a column resolves against
//.
type AttrScope int

const (
	AttrScopeRoot AttrScope = iota
	AttrScopeResource
	AttrScopeScope
)

// AccessorKind is the closed set of resolved column-reference shapes.
type AccessorKind int

const (
	AccessorAttributes AccessorKind = iota
	AccessorStructCol
	AccessorColumnName
)

// ColumnAccessor is the resolved form of a KQL column reference:
// `attributes[name]` -> Attributes(Root, name); `resource.attributes[name]`
// -> Attributes(NonRoot(ResourceAttrs), name); `scope.attributes[name]` ->
// Attributes(NonRoot(ScopeAttrs), name); `resource.<field>`/`scope.<field>`
// -> StructCol; bare identifier -> ColumnName.
type ColumnAccessor struct {
	Kind   AccessorKind
	Scope  AttrScope
	Name   string // attribute key, or bare column name
	Struct string // "resource" or "scope", set only for AccessorStructCol
	Field  string // struct field name, set only for AccessorStructCol
}

// ResolveColumnAccessor parses the textual path kql.SourceScalarExpression
// carries (e.g. `attributes["http.status_code"]`, `resource.service.name`,
// `severity_text`) into a ColumnAccessor.
func ResolveColumnAccessor(path string) (ColumnAccessor, error) {
	if idx := strings.IndexByte(path, '['); idx >= 0 {
		base := path[:idx]
		rest := path[idx:]
		key, err := unquoteBracket(rest)
		if err != nil {
			return ColumnAccessor{}, err
		}
		switch base {
		case "attributes":
			return ColumnAccessor{Kind: AccessorAttributes, Scope: AttrScopeRoot, Name: key}, nil
		case "resource.attributes":
			return ColumnAccessor{Kind: AccessorAttributes, Scope: AttrScopeResource, Name: key}, nil
		case "scope.attributes":
			return ColumnAccessor{Kind: AccessorAttributes, Scope: AttrScopeScope, Name: key}, nil
		default:
			return ColumnAccessor{}, fmt.Errorf("plan: unknown bracketed accessor base %q", base)
		}
	}

	if strings.HasPrefix(path, "resource.") {
		return ColumnAccessor{Kind: AccessorStructCol, Struct: "resource", Field: strings.TrimPrefix(path, "resource.")}, nil
	}
	if strings.HasPrefix(path, "scope.") {
		return ColumnAccessor{Kind: AccessorStructCol, Struct: "scope", Field: strings.TrimPrefix(path, "scope.")}, nil
	}
	if strings.ContainsAny(path, ".[") {
		return ColumnAccessor{}, fmt.Errorf("plan: unsupported column accessor %q", path)
	}
	return ColumnAccessor{Kind: AccessorColumnName, Name: path}, nil
}

func unquoteBracket(s string) (string, error) {
	if len(s) < 3 || s[0] != '[' || s[len(s)-1] != ']' {
		return "", fmt.Errorf("plan: malformed bracketed accessor %q", s)
	}
	inner := s[1 : len(s)-1]
	if len(inner) >= 2 && inner[0] == '"' && inner[len(inner)-1] == '"' {
		inner = inner[1 : len(inner)-1]
	}
	return inner, nil
}
