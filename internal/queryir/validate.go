package queryir

import (
	"fmt"

	"github.com/roach88/equery/internal/ir"
)

// Validate checks the structural rules every executable plan satisfies:
//  1. Projection entries are non-empty property paths
//  2. Literals hold only string, number or boolean values
//  3. Operators and function calls have all their operands
//  4. Limits are non-negative and directions are asc or desc
//
// The parser only produces valid plans; Validate guards plans built by hand.
// Validate is a pure function with no side effects.
func Validate(plan *Plan) error {
	if plan == nil {
		return ir.NewError(ir.ErrSyntax, "nil plan")
	}
	for i, entry := range plan.Projection {
		path, ok := asPath(entry)
		if !ok {
			return ir.NewError(ir.ErrProjectionEntry, "entry %d is %s", i, describe(entry))
		}
		if len(path.Segments) == 0 {
			return ir.NewError(ir.ErrProjectionEntry, "entry %d is an empty path", i)
		}
	}
	if err := validateExpr(plan.Condition); err != nil {
		return err
	}
	if o := plan.Ordering; o != nil {
		if err := validateExpr(o.Key); err != nil {
			return err
		}
		if o.Key != nil && o.Direction != Asc && o.Direction != Desc {
			return ir.NewError(ir.ErrSyntax, "invalid direction %q", string(o.Direction))
		}
		if o.Limit != nil && *o.Limit < 0 {
			return ir.NewError(ir.ErrSyntax, "negative limit %d", *o.Limit)
		}
	}
	return nil
}

// validateExpr recursively validates an expression node. nil is valid.
func validateExpr(e Expression) error {
	if e == nil {
		return nil
	}
	switch expr := e.(type) {
	case PropertyPath, *PropertyPath:
		return nil
	case Literal:
		return validateLiteral(expr)
	case *Literal:
		return validateLiteral(*expr)
	case FunctionCall:
		return validateCall(expr)
	case *FunctionCall:
		return validateCall(*expr)
	case BinaryOp:
		return validateBinary(expr)
	case *BinaryOp:
		return validateBinary(*expr)
	default:
		return ir.NewError(ir.ErrSyntax, "unknown expression type %T", e)
	}
}

func validateLiteral(l Literal) error {
	switch l.Value.(type) {
	case ir.String, ir.Number, ir.Boolean:
		return nil
	default:
		return ir.NewError(ir.ErrSyntax, "literal of kind %s", describeValue(l.Value))
	}
}

func validateCall(f FunctionCall) error {
	if f.Name == "" {
		return ir.NewError(ir.ErrSyntax, "function call without a name")
	}
	for i, arg := range f.Args {
		if arg == nil {
			return ir.NewError(ir.ErrSyntax, "%s argument %d is empty", f.Name, i+1)
		}
		if err := validateExpr(arg); err != nil {
			return err
		}
	}
	return nil
}

func validateBinary(b BinaryOp) error {
	if b.Op.Precedence() < 0 {
		return ir.NewError(ir.ErrSyntax, "unknown operator %q", string(b.Op))
	}
	if b.Left == nil || b.Right == nil {
		return ir.NewError(ir.ErrSyntax, "operator %s is missing an operand", b.Op)
	}
	if err := validateExpr(b.Left); err != nil {
		return err
	}
	return validateExpr(b.Right)
}

func asPath(e Expression) (PropertyPath, bool) {
	switch p := e.(type) {
	case PropertyPath:
		return p, true
	case *PropertyPath:
		return *p, true
	default:
		return PropertyPath{}, false
	}
}

func describe(e Expression) string {
	if e == nil {
		return "empty"
	}
	return fmt.Sprintf("%T %s", e, e.String())
}

func describeValue(v ir.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}

// Analysis describes what a plan needs from its executor.
//
// A plan whose condition and order key call no aggregate can be evaluated
// row by row, which lets a storage backend prefilter rows. Aggregates see
// the whole pre-filter dataset, so any prefilter would change their result.
type Analysis struct {
	// RowLocal is true when no aggregate appears in the condition or order key.
	RowLocal bool

	// Aggregates lists aggregate calls by canonical rendering, in visit order.
	Aggregates []string

	// Warnings explains why RowLocal is false. Empty when RowLocal is true.
	Warnings []string
}

// Analyze inspects plan with isAggregate deciding which function names are
// aggregates. Analyze is a pure function with no side effects.
func Analyze(plan *Plan, isAggregate func(name string) bool) Analysis {
	a := Analysis{}
	visit := func(where string) func(Expression) bool {
		return func(e Expression) bool {
			var call FunctionCall
			switch f := e.(type) {
			case FunctionCall:
				call = f
			case *FunctionCall:
				call = *f
			default:
				return true
			}
			if isAggregate(call.Name) {
				a.Aggregates = append(a.Aggregates, call.String())
				a.Warnings = append(a.Warnings, fmt.Sprintf("%s uses aggregate %s", where, call.String()))
				return false
			}
			return true
		}
	}
	if plan != nil {
		Walk(plan.Condition, visit("condition"))
		if plan.Ordering != nil {
			Walk(plan.Ordering.Key, visit("order key"))
		}
	}
	a.RowLocal = len(a.Aggregates) == 0
	return a
}
