package queryir

import (
	"strings"

	"github.com/roach88/equery/internal/ir"
)

// Expression is a node of a compiled condition, order key or projection.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the engine and the SQL compiler.
//
// Expression types:
//   - PropertyPath: .a.b resolved against the current row
//   - Literal: string, number or boolean constant
//   - FunctionCall: scalar or aggregate built-in
//   - BinaryOp: two operands joined by an operator
//
// String returns a canonical rendering; two expressions with the same
// rendering evaluate identically, so it doubles as the aggregate cache key.
type Expression interface {
	expressionNode() // Marker method - seals interface to this package
	String() string
}

// PropertyPath references a (possibly nested) field of the current row.
//
// Example: .user.name → PropertyPath{Segments: []string{"user", "name"}}
type PropertyPath struct {
	Segments []string
}

func (PropertyPath) expressionNode() {}

func (p PropertyPath) String() string {
	return ir.JoinPath(p.Segments)
}

// Literal is a constant. Value is always ir.String, ir.Number or ir.Boolean.
type Literal struct {
	Value ir.Value
}

func (Literal) expressionNode() {}

func (l Literal) String() string {
	if s, ok := l.Value.(ir.String); ok {
		return `"` + string(s) + `"`
	}
	return ir.Text(l.Value)
}

// FunctionCall invokes a built-in by name. Whether the function is scalar
// or aggregate is decided by the function registry, not the tree.
type FunctionCall struct {
	Name string
	Args []Expression
}

func (FunctionCall) expressionNode() {}

func (f FunctionCall) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte('(')
	for i, arg := range f.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.String())
	}
	b.WriteByte(')')
	return b.String()
}

// BinaryOp combines two operands. Parsing is left-associative, so
// ".a + 1 + 2" is BinaryOp{+, BinaryOp{+, .a, 1}, 2}.
type BinaryOp struct {
	Op    Operator
	Left  Expression
	Right Expression
}

func (BinaryOp) expressionNode() {}

func (b BinaryOp) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

// Operator is a binary operator symbol.
type Operator string

const (
	OpAdd     Operator = "+"
	OpSub     Operator = "-"
	OpMul     Operator = "*"
	OpDiv     Operator = "/"
	OpAnd     Operator = "&"
	OpOr      Operator = "|"
	OpLess    Operator = "<"
	OpGreater Operator = ">"
	OpEqual   Operator = "="
)

// Precedence returns the binding strength used by precedence climbing.
// Higher binds tighter; all operators are left-associative.
func (o Operator) Precedence() int {
	switch o {
	case OpAnd, OpOr:
		return 0
	case OpAdd, OpSub, OpLess, OpGreater, OpEqual:
		return 1
	case OpMul, OpDiv:
		return 2
	default:
		return -1
	}
}

// Direction is the sort direction of an ordering clause.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Ordering is the part of a plan after '~'.
//
// Key is nil when the clause only limits ("~ limit(3)"), in which case
// input order is kept. Limit is nil when no limit was given.
type Ordering struct {
	Key       Expression
	Direction Direction
	Limit     *int
}

// Plan is a compiled statement.
//
// Semantics:
//
//	SELECT <projection> FROM dataset WHERE <condition> ORDER BY <key> LIMIT <n>
//
// A nil Projection keeps whole rows, a nil Condition keeps every row and a
// nil Ordering keeps input order. Plans are immutable after compilation and
// safe to share between goroutines.
type Plan struct {
	Projection []Expression
	Condition  Expression
	Ordering   *Ordering
}

// String renders the plan back into statement form.
func (p *Plan) String() string {
	var parts []string
	if len(p.Projection) > 0 {
		entries := make([]string, len(p.Projection))
		for i, e := range p.Projection {
			entries[i] = e.String()
		}
		parts = append(parts, strings.Join(entries, ", ")+":")
	}
	if p.Condition != nil {
		parts = append(parts, p.Condition.String())
	}
	if p.Ordering != nil {
		parts = append(parts, "~")
		if p.Ordering.Key != nil {
			parts = append(parts, "orderby("+p.Ordering.Key.String()+")", string(p.Ordering.Direction))
		}
		if p.Ordering.Limit != nil {
			parts = append(parts, "limit("+ir.FormatNumber(float64(*p.Ordering.Limit))+")")
		}
	}
	return strings.Join(parts, " ")
}

// Walk visits expr and its children depth-first, left to right. Returning
// false from fn stops descent into that node's children.
func Walk(expr Expression, fn func(Expression) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch e := expr.(type) {
	case FunctionCall:
		for _, arg := range e.Args {
			Walk(arg, fn)
		}
	case *FunctionCall:
		for _, arg := range e.Args {
			Walk(arg, fn)
		}
	case BinaryOp:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *BinaryOp:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	}
}

// Calls returns the names of every function called within expr, in visit order.
func Calls(expr Expression) []string {
	var names []string
	Walk(expr, func(e Expression) bool {
		switch f := e.(type) {
		case FunctionCall:
			names = append(names, f.Name)
		case *FunctionCall:
			names = append(names, f.Name)
		}
		return true
	})
	return names
}

// Path is a shorthand PropertyPath constructor: Path("a", "b") is .a.b.
func Path(segments ...string) PropertyPath {
	return PropertyPath{Segments: segments}
}
