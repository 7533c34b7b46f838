// Package registry implements the plugin URN surface and the
// FactoryRegistry: a process-wide, once-initialized URN->factory
// map that builds typed runtime pipelines from config, mirroring
// component.Factories{} + receiver.MakeFactoryMap(...) in
// collector/cmd/otelarrowcol/components.go.
package registry

import (
	"fmt"
	"strings"

	"github.com/otelcol-arrow-dataflow/engine/internal/node"
)

const defaultNamespace = "otel"

// URN is the canonical parsed form of a plugin reference.
type URN struct {
	Namespace string
	ID        string
	Kind      node.Kind
}

// String renders the canonical lowercase form: urn:<namespace>:<id>:<kind>.
func (u URN) String() string {
	return fmt.Sprintf("urn:%s:%s:%s", u.Namespace, u.ID, u.Kind.String())
}

// ErrInvalidUserConfig is returned for any URN that fails validation.
type ErrInvalidUserConfig struct{ Msg string }

func (e *ErrInvalidUserConfig) Error() string { return e.Msg }

func isValidSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSep := r == '.' || r == '_' || r == '-'
		if !isLower && !isDigit && !isSep {
			return false
		}
	}
	return true
}

func parseKind(s string) (node.Kind, bool) {
	switch s {
	case "receiver":
		return node.KindReceiver, true
	case "processor":
		return node.KindProcessor, true
	case "exporter":
		return node.KindExporter, true
	default:
		return 0, false
	}
}

// ParseURN parses and canonicalizes a plugin URN. Accepted
// forms: "urn:<namespace>:<id>:<kind>" or the default-namespace shortcut
// "<id>:<kind>". Scheme/namespace are case-insensitive on input; the
// canonical form is always lowercase. Percent-encoding, empty segments,
// an uppercase id in the full "urn:" form, and unknown kinds are rejected.
func ParseURN(s string) (URN, error) {
	if strings.Contains(s, "%") {
		return URN{}, &ErrInvalidUserConfig{Msg: fmt.Sprintf("percent-encoding not allowed in urn %q", s)}
	}

	if !strings.Contains(s, ":") {
		return URN{}, &ErrInvalidUserConfig{Msg: fmt.Sprintf("malformed urn %q", s)}
	}

	lower := strings.ToLower(s)

	if strings.HasPrefix(lower, "urn:") {
		parts := strings.Split(s, ":")
		if len(parts) != 4 {
			return URN{}, &ErrInvalidUserConfig{Msg: fmt.Sprintf("malformed urn %q", s)}
		}
		_, ns, id, kindStr := parts[0], parts[1], parts[2], parts[3]
		ns = strings.ToLower(ns)
		kindStr = strings.ToLower(kindStr)
		if !isValidSegment(ns) || !isValidSegment(id) {
			return URN{}, &ErrInvalidUserConfig{Msg: fmt.Sprintf("empty or invalid segment in urn %q", s)}
		}
		k, ok := parseKind(kindStr)
		if !ok {
			return URN{}, &ErrInvalidUserConfig{Msg: fmt.Sprintf("unknown kind in urn %q", s)}
		}
		return URN{Namespace: ns, ID: id, Kind: k}, nil
	}

	// Shortcut form: "<id>:<kind>", default namespace only.
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return URN{}, &ErrInvalidUserConfig{Msg: fmt.Sprintf("malformed urn %q", s)}
	}
	id := strings.ToLower(parts[0])
	kindStr := strings.ToLower(parts[1])
	if !isValidSegment(id) {
		return URN{}, &ErrInvalidUserConfig{Msg: fmt.Sprintf("invalid id segment in urn %q", s)}
	}
	k, ok := parseKind(kindStr)
	if !ok {
		return URN{}, &ErrInvalidUserConfig{Msg: fmt.Sprintf("unknown kind in urn %q", s)}
	}
	return URN{Namespace: defaultNamespace, ID: id, Kind: k}, nil
}

// Canonicalize parses and re-renders s in canonical form. Idempotent
//  this property.
func Canonicalize(s string) (string, error) {
	u, err := ParseURN(s)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
