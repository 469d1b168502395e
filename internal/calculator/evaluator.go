package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
)

const (
	MaxExpressionLength = 256
	maxDepth            = 32
)

var (
	ErrInvalidCharacters = errors.New("expression contains invalid characters")
	ErrUnsupported       = errors.New("unsupported expression")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrNotFinite         = errors.New("result is not a finite number")
)

var glyphs = strings.NewReplacer("x", "*", "X", "*", "×", "*", "÷", "/", "^", "**")

// Normalize maps multiplication and division glyphs and the caret to
// canonical operators and trims surrounding space.
func Normalize(expr string) string {
	return strings.TrimSpace(glyphs.Replace(expr))
}

// Validate normalizes expr and rejects any character outside digits, '.',
// parentheses, the arithmetic operators and spaces.
func Validate(expr string) (string, error) {
	clean := Normalize(expr)
	if clean == "" {
		return "", errx.Validation("Expression is empty", ErrUnsupported)
	}
	if len(clean) > MaxExpressionLength {
		return "", errx.Validation("Expression is too long", ErrUnsupported)
	}
	for _, r := range clean {
		if !strings.ContainsRune("0123456789.()+-*/% ", r) {
			return "", errx.Validation("Expression contains invalid characters", ErrInvalidCharacters)
		}
	}
	return clean, nil
}

// Evaluate validates expr, parses it into an operator tree and evaluates it
// with Python arithmetic semantics.
func Evaluate(expr string) (float64, error) {
	clean, err := Validate(expr)
	if err != nil {
		return 0, err
	}
	tree, err := Parse(clean)
	if err != nil {
		return 0, err
	}
	v, err := tree.Eval()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errx.Validation("Result is not a finite number", ErrNotFinite)
	}
	return v, nil
}

// FormatNumber renders v without a trailing ".0" for integral values.
func FormatNumber(v float64) string {
	if v == 0 {
		v = 0 // folds -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ================ Tree ================

// Node is an arithmetic operator tree node.
type Node interface {
	Eval() (float64, error)
	String() string
}

type numberNode struct {
	value float64
	text  string
}

func (n numberNode) Eval() (float64, error) { return n.value, nil }
func (n numberNode) String() string         { return n.text }

type unaryNode struct {
	op      string
	operand Node
}

func (n unaryNode) Eval() (float64, error) {
	v, err := n.operand.Eval()
	if err != nil {
		return 0, err
	}
	if n.op == "-" {
		return -v, nil
	}
	return v, nil
}

func (n unaryNode) String() string { return "(" + n.op + n.operand.String() + ")" }

type binaryNode struct {
	op          string
	left, right Node
}

func (n binaryNode) String() string {
	return "(" + n.left.String() + " " + n.op + " " + n.right.String() + ")"
}

func (n binaryNode) Eval() (float64, error) {
	a, err := n.left.Eval()
	if err != nil {
		return 0, err
	}
	b, err := n.right.Eval()
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, errx.Validation("Division by zero", ErrDivisionByZero)
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return 0, errx.Validation("Modulo by zero", ErrDivisionByZero)
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return r, nil
	case "**":
		if a == 0 && b < 0 {
			return 0, errx.Validation("Zero cannot be raised to a negative power", ErrDivisionByZero)
		}
		return math.Pow(a, b), nil
	}
	return 0, errx.Validation("Unsupported operation", fmt.Errorf("%w: operator %q", ErrUnsupported, n.op))
}

// ================ Parser ================

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: s[start:i], pos: start})
		case c == '*' && i+1 < len(s) && s[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "**", pos: i})
			i += 2
		case strings.IndexByte("+-*/%", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			return nil, errx.Validation("Expression contains invalid characters", ErrInvalidCharacters)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(s)}), nil
}

type parser struct {
	toks  []token
	pos   int
	depth int
}

// Parse builds an operator tree from a validated expression.
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/" | "%") factor }
//	factor = ("+" | "-") factor | power
//	power  = atom [ "**" factor ]
//	atom   = number | "(" expr ")"
func Parse(expr string) (Node, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.unexpected()
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) unexpected() error {
	t := p.peek()
	if t.kind == tokEOF {
		return errx.Validation("Invalid expression: unexpected end of input", ErrUnsupported)
	}
	return errx.Validation(fmt.Sprintf("Invalid expression: unexpected %q at position %d", t.text, t.pos+1), ErrUnsupported)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return errx.Validation("Expression is nested too deeply", ErrUnsupported)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.next().text
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) term() (Node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/", "%") {
		op := p.next().text
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) factor() (Node, error) {
	if p.isOp("+", "-") {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		op := p.next().text
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, operand: operand}, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.atom()
	if err != nil {
		return nil, err
	}
	if !p.isOp("**") {
		return base, nil
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	p.next()
	exp, err := p.factor()
	if err != nil {
		return nil, err
	}
	return binaryNode{op: "**", left: base, right: exp}, nil
}

func (p *parser) atom() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil || strings.Count(t.text, ".") > 1 {
			return nil, errx.Validation(fmt.Sprintf("Invalid expression: bad number %q", t.text), ErrUnsupported)
		}
		return numberNode{value: v, text: t.text}, nil
	case tokLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		p.next()
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.unexpected()
		}
		p.next()
		return n, nil
	}
	return nil, p.unexpected()
}
