package kql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/otelcol-arrow-dataflow/engine/expr"
)

// Parse compiles KQL source text into a Query. Syntax failures return a
// *SyntaxError; semantic failures detected during the static-resolution
// pass folded into parsing (parse_json/parse_regex/array_concat operand
// checks) return a *QueryLanguageDiagnostic.
func Parse(src string) (*Query, error) {
	toks, synErr := newLexer(src).tokenize()
	if synErr != nil {
		return nil, synErr
	}
	p := &parser{toks: toks}
	return p.parseQuery()
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, *SyntaxError) {
	if p.cur().kind != k {
		return token{}, &SyntaxError{Location: p.cur().loc, Message: fmt.Sprintf("expected %s, found %q", what, p.cur().text)}
	}
	return p.advance(), nil
}

func (p *parser) parseQuery() (*Query, error) {
	ident, err := p.expect(tokIdent, "signal scope identifier")
	if err != nil {
		return nil, err
	}
	scope, ok := parseScope(ident.text)
	if !ok {
		return nil, &SyntaxError{Location: ident.loc, Message: fmt.Sprintf("unknown signal scope %q", ident.text)}
	}

	q := &Query{Scope: scope}
	for p.cur().kind == tokPipe {
		p.advance()
		stage, err := p.parseStage()
		if err != nil {
			return nil, err
		}
		q.Stages = append(q.Stages, stage)
	}
	if p.cur().kind != tokEOF {
		return nil, &SyntaxError{Location: p.cur().loc, Message: fmt.Sprintf("unexpected trailing token %q", p.cur().text)}
	}
	return q, nil
}

func parseScope(s string) (SignalScope, bool) {
	switch strings.ToLower(s) {
	case "logs":
		return SignalScopeLogs, true
	case "traces":
		return SignalScopeTraces, true
	case "metrics":
		return SignalScopeMetrics, true
	case "signal":
		return SignalScopeAll, true
	default:
		return 0, false
	}
}

func (p *parser) parseStage() (DataExpression, error) {
	if p.cur().kind != tokIdent {
		return nil, &SyntaxError{Location: p.cur().loc, Message: "expected stage keyword"}
	}
	kw := p.cur()
	switch strings.ToLower(kw.text) {
	case "where":
		p.advance()
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return &DiscardExpression{Loc: kw.loc, Predicate: &NotScalar{Loc: kw.loc, Inner: pred}}, nil
	default:
		p.advance()
		// Unsupported stage kinds are accepted syntactically and left for
		// the planner to reject with NotYetSupportedError, rather than failing the parse outright.
		for p.cur().kind != tokPipe && p.cur().kind != tokEOF {
			p.advance()
		}
		return &UnsupportedExpression{Loc: kw.loc, Kind: kw.text}, nil
	}
}

// NotScalar aliases expr.NotExpression for readability at call sites that
// build the canonical Discard(Not(predicate)) shape.
type NotScalar = expr.NotExpression

func (p *parser) parseOr() (expr.ScalarExpression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOr {
		op := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &expr.LogicalScalarExpression{Loc: op.loc, Op: expr.LogicalOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr.ScalarExpression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokAnd {
		op := p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &expr.LogicalScalarExpression{Loc: op.loc, Op: expr.LogicalAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (expr.ScalarExpression, error) {
	if p.cur().kind == tokNot {
		op := p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &expr.NotExpression{Loc: op.loc, Inner: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (expr.ScalarExpression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOp(p.cur().kind)
	if !ok {
		return left, nil
	}
	opTok := p.advance()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &expr.LogicalScalarExpression{Loc: opTok.loc, Op: op, Left: left, Right: right}, nil
}

func comparisonOp(k tokenKind) (expr.LogicalOp, bool) {
	switch k {
	case tokEq:
		return expr.LogicalEquals, true
	case tokNeq:
		return expr.LogicalNotEquals, true
	case tokGt:
		return expr.LogicalGreaterThan, true
	case tokGte:
		return expr.LogicalGreaterThanOrEqual, true
	case tokLt:
		return expr.LogicalLessThan, true
	case tokLte:
		return expr.LogicalLessThanOrEqual, true
	default:
		return 0, false
	}
}

func (p *parser) parseAdditive() (expr.ScalarExpression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op expr.ArithmeticOp
		switch p.cur().kind {
		case tokPlus:
			op = expr.ArithmeticAdd
		case tokMinus:
			op = expr.ArithmeticSubtract
		default:
			return left, nil
		}
		opTok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &expr.ArithmeticScalarExpression{Loc: opTok.loc, Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (expr.ScalarExpression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		var op expr.ArithmeticOp
		switch p.cur().kind {
		case tokStar:
			op = expr.ArithmeticMultiply
		case tokSlash:
			op = expr.ArithmeticDivide
		case tokPercent:
			op = expr.ArithmeticModulo
		default:
			return left, nil
		}
		opTok := p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &expr.ArithmeticScalarExpression{Loc: opTok.loc, Op: op, Left: left, Right: right}
	}
}

func (p *parser) parsePrimary() (expr.ScalarExpression, error) {
	t := p.cur()
	switch t.kind {
	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokString:
		p.advance()
		return expr.NewStringStatic(t.loc, t.text), nil
	case tokInteger:
		p.advance()
		n, _ := strconv.ParseInt(t.text, 10, 64)
		return expr.NewIntegerStatic(t.loc, n), nil
	case tokDouble:
		p.advance()
		f, _ := strconv.ParseFloat(t.text, 64)
		return expr.NewDoubleStatic(t.loc, f), nil
	case tokTrue:
		p.advance()
		return expr.NewBooleanStatic(t.loc, true), nil
	case tokFalse:
		p.advance()
		return expr.NewBooleanStatic(t.loc, false), nil
	case tokNull:
		p.advance()
		return expr.NewNullStatic(t.loc), nil
	case tokIdent:
		return p.parseIdentExpr()
	default:
		return nil, &SyntaxError{Location: t.loc, Message: fmt.Sprintf("unexpected token %q", t.text)}
	}
}

// parseIdentExpr handles bare identifiers, dotted struct access
// (resource.attributes[...] / resource.<field>), attributes[...], and
// function calls — the ColumnAccessor surface, preserved here as a
// textual path string for the planner to interpret, plus the three
// well-known function names that fold at parse time.
func (p *parser) parseIdentExpr() (expr.ScalarExpression, error) {
	first := p.advance()

	if p.cur().kind == tokLParen {
		return p.parseFunctionCall(first)
	}

	path := first.text
	loc := first.loc
	for {
		switch p.cur().kind {
		case tokDot:
			p.advance()
			field, err := p.expect(tokIdent, "field name")
			if err != nil {
				return nil, err
			}
			path += "." + field.text
			loc.End = field.loc.End
		case tokLBracket:
			p.advance()
			key, err := p.expect(tokString, "attribute name")
			if err != nil {
				return nil, err
			}
			closeB, err := p.expect(tokRBracket, "]")
			if err != nil {
				return nil, err
			}
			path += "[\"" + key.text + "\"]"
			loc.End = closeB.loc.End
		default:
			return &expr.SourceScalarExpression{Loc: loc, Column: path}, nil
		}
	}
}

func (p *parser) parseFunctionCall(name token) (expr.ScalarExpression, error) {
	p.advance() // consume '('
	var args []expr.ScalarExpression
	if p.cur().kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	closeP, err := p.expect(tokRParen, ")")
	if err != nil {
		return nil, err
	}
	callLoc := expr.QueryLocation{Start: name.loc.Start, End: closeP.loc.End}

	switch strings.ToLower(name.text) {
	case "parse_json":
		return foldParseJSON(callLoc, name.text, args)
	case "parse_regex":
		return foldParseRegex(callLoc, name.text, args)
	case "array_concat":
		return foldArrayConcat(callLoc, name.text, args)
	default:
		return nil, &SyntaxError{Location: name.loc, Message: fmt.Sprintf("unknown function %q", name.text)}
	}
}

func asStaticString(e expr.ScalarExpression) (string, bool) {
	s, ok := e.(*expr.StaticScalarExpression)
	if !ok || s.Type != expr.ValueTypeString {
		return "", false
	}
	v, _ := s.Value.(string)
	return v, true
}

func foldParseJSON(loc expr.QueryLocation, fn string, args []expr.ScalarExpression) (expr.ScalarExpression, error) {
	if len(args) != 1 {
		return nil, &SyntaxError{Location: loc, Message: fn + " takes exactly one argument"}
	}
	s, ok := asStaticString(args[0])
	if !ok {
		return nil, errStringExpected(args[0].Location(), fn)
	}
	folded, err := expr.FromJSON(loc, []byte(s))
	if err != nil {
		return nil, &SyntaxError{Location: loc, Message: err.Error()}
	}
	return folded, nil
}

func foldParseRegex(loc expr.QueryLocation, fn string, args []expr.ScalarExpression) (expr.ScalarExpression, error) {
	if len(args) != 1 {
		return nil, &SyntaxError{Location: loc, Message: fn + " takes exactly one argument"}
	}
	s, ok := asStaticString(args[0])
	if !ok {
		return nil, errStringExpected(args[0].Location(), fn)
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return nil, &SyntaxError{Location: loc, Message: "invalid regex: " + err.Error()}
	}
	return expr.NewRegexStatic(loc, re), nil
}

func foldArrayConcat(loc expr.QueryLocation, fn string, args []expr.ScalarExpression) (expr.ScalarExpression, error) {
	var out []any
	for _, a := range args {
		s, ok := a.(*expr.StaticScalarExpression)
		if !ok || s.Type != expr.ValueTypeArray {
			return nil, errArrayExpected(a.Location(), fn)
		}
		elems, _ := s.Value.([]any)
		out = append(out, elems...)
	}
	return expr.NewArrayStatic(loc, out), nil
}
