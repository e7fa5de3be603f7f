package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

// SQLCompiler compiles conditions into a SQLite prefilter over the JSON
// documents table.
//
// A prefilter is a WHERE clause that keeps at least every row the
// condition keeps. Parts of a condition with no exact SQL counterpart are
// dropped from conjunctions, or make the whole filter unusable when they
// appear under '|'. The engine always re-applies the full condition.
//
// CRITICAL: All values are parameterized (never interpolated).
// CRITICAL: Every query orders by seq so documents load in insertion order.
type SQLCompiler struct {
	// Table holds the documents; see store/schema.sql.
	Table string

	// Column holds the JSON text of each document.
	Column string
}

// NewSQLCompiler creates a compiler for the store's documents table.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: "documents", Column: "data"}
}

// CompileSelect builds the document query for collection. cond may be nil,
// in which case the whole collection is selected.
func (c *SQLCompiler) CompileSelect(collection string, cond queryir.Expression) (string, []any) {
	params := []any{collection}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE collection = ?", c.Column, c.Table)

	if cond != nil {
		if where, whereParams, ok := c.CompileCondition(cond); ok {
			sql += " AND (" + where + ")"
			params = append(params, whereParams...)
		}
	}

	// MANDATORY: insertion order
	sql += " ORDER BY seq ASC"
	return sql, params
}

// CompileCondition returns the prefilter for cond. ok is false when no part
// of cond can be pushed down.
func (c *SQLCompiler) CompileCondition(cond queryir.Expression) (string, []any, bool) {
	var b queryir.BinaryOp
	switch e := cond.(type) {
	case queryir.BinaryOp:
		b = e
	case *queryir.BinaryOp:
		b = *e
	default:
		return "", nil, false
	}

	switch b.Op {
	case queryir.OpAnd:
		return c.compileAnd(b)
	case queryir.OpOr:
		return c.compileOr(b)
	case queryir.OpEqual, queryir.OpLess, queryir.OpGreater:
		return c.compileComparison(b)
	default:
		return "", nil, false
	}
}

// compileAnd keeps whichever sides are pushable. Dropping one side of a
// conjunction only widens the filter.
func (c *SQLCompiler) compileAnd(b queryir.BinaryOp) (string, []any, bool) {
	lsql, lparams, lok := c.CompileCondition(b.Left)
	rsql, rparams, rok := c.CompileCondition(b.Right)
	switch {
	case lok && rok:
		return lsql + " AND " + rsql, append(lparams, rparams...), true
	case lok:
		return lsql, lparams, true
	case rok:
		return rsql, rparams, true
	default:
		return "", nil, false
	}
}

// compileOr needs both sides: dropping a disjunct would narrow the filter.
func (c *SQLCompiler) compileOr(b queryir.BinaryOp) (string, []any, bool) {
	lsql, lparams, lok := c.CompileCondition(b.Left)
	rsql, rparams, rok := c.CompileCondition(b.Right)
	if !lok || !rok {
		return "", nil, false
	}
	return "(" + lsql + " OR " + rsql + ")", append(lparams, rparams...), true
}

// compileComparison handles "path op literal" and "literal op path".
//
// A missing path resolves to false, so "= false" matches documents that
// lack the field while json_extract yields NULL for them. Such comparisons
// are not pushed down.
func (c *SQLCompiler) compileComparison(b queryir.BinaryOp) (string, []any, bool) {
	op := b.Op
	path, okPath := asPath(b.Left)
	lit, okLit := asLiteral(b.Right)
	if !okPath || !okLit {
		path, okPath = asPath(b.Right)
		lit, okLit = asLiteral(b.Left)
		if !okPath || !okLit {
			return "", nil, false
		}
		op = mirror(op)
	}

	param, ok := valueToParam(lit.Value)
	if !ok {
		return "", nil, false
	}
	if bv, isBool := lit.Value.(ir.Boolean); isBool && (op != queryir.OpEqual || !bool(bv)) {
		return "", nil, false
	}

	sql := fmt.Sprintf("json_extract(%s, ?) %s ?", c.Column, sqlOperator(op))
	return sql, []any{JSONPath(path.Segments), param}, true
}

// JSONPath renders segments as a SQLite JSON path with quoted labels.
func JSONPath(segments []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range segments {
		b.WriteString(`."`)
		b.WriteString(seg)
		b.WriteString(`"`)
	}
	return b.String()
}

func sqlOperator(op queryir.Operator) string {
	switch op {
	case queryir.OpLess:
		return "<"
	case queryir.OpGreater:
		return ">"
	default:
		return "="
	}
}

// mirror swaps the sides of a comparison: 5 < .a is .a > 5.
func mirror(op queryir.Operator) queryir.Operator {
	switch op {
	case queryir.OpLess:
		return queryir.OpGreater
	case queryir.OpGreater:
		return queryir.OpLess
	default:
		return op
	}
}

func asPath(e queryir.Expression) (queryir.PropertyPath, bool) {
	switch p := e.(type) {
	case queryir.PropertyPath:
		return p, len(p.Segments) > 0
	case *queryir.PropertyPath:
		return *p, len(p.Segments) > 0
	default:
		return queryir.PropertyPath{}, false
	}
}

func asLiteral(e queryir.Expression) (queryir.Literal, bool) {
	switch l := e.(type) {
	case queryir.Literal:
		return l, true
	case *queryir.Literal:
		return *l, true
	default:
		return queryir.Literal{}, false
	}
}

// valueToParam converts a literal to a SQL parameter. Only scalars qualify.
func valueToParam(v ir.Value) (any, bool) {
	switch val := v.(type) {
	case ir.String:
		return string(val), true
	case ir.Number:
		return float64(val), true
	case ir.Boolean:
		return bool(val), true
	default:
		return nil, false
	}
}
