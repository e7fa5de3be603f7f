package compiler

import (
	"strconv"
	"strings"

	"github.com/roach88/equery/internal/functions"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/lexer"
	"github.com/roach88/equery/internal/queryir"
)

// Compiler turns statements into plans. Function names are checked
// against the registry at compile time, so a plan never calls an
// unknown function.
//
// Thread-safety: Compiler is stateless apart from the read-only registry
// and is safe for concurrent use.
type Compiler struct {
	registry *functions.Registry
}

// New creates a compiler. A nil registry means functions.Default().
func New(registry *functions.Registry) *Compiler {
	if registry == nil {
		registry = functions.Default()
	}
	return &Compiler{registry: registry}
}

// Compile lexes and parses statement.
func (c *Compiler) Compile(statement string) (*queryir.Plan, error) {
	return c.Parse(lexer.Lex(statement))
}

// Compile compiles statement with the default registry.
func Compile(statement string) (*queryir.Plan, error) {
	return New(nil).Compile(statement)
}

// Parse parses tokens with the default registry.
func Parse(tokens []lexer.Token) (*queryir.Plan, error) {
	return New(nil).Parse(tokens)
}

// Parse builds a plan from tokens in three phases: scope, condition and
// ordering. Every failure is a fatal *ir.QueryError.
func (c *Compiler) Parse(tokens []lexer.Token) (*queryir.Plan, error) {
	plan := &queryir.Plan{}

	colon, tilde := -1, -1
	for i, t := range tokens {
		if t.Kind == lexer.KindTilde && tilde < 0 {
			tilde = i
		}
		if t.Kind == lexer.KindColon && colon < 0 && tilde < 0 {
			colon = i
		}
	}

	rest := tokens
	if colon >= 0 {
		projection, err := parseScope(tokens[:colon], tokens[colon])
		if err != nil {
			return nil, err
		}
		plan.Projection = projection
		rest = tokens[colon+1:]
		if tilde >= 0 {
			tilde -= colon + 1
		}
	}

	condition := rest
	if tilde >= 0 {
		condition = rest[:tilde]
	}
	if len(condition) > 0 {
		p := &exprParser{c: c, toks: condition}
		expr, err := p.parseAll()
		if err != nil {
			return nil, err
		}
		plan.Condition = expr
	}

	if tilde >= 0 {
		ordering, err := c.parseOrdering(rest[tilde+1:], rest[tilde])
		if err != nil {
			return nil, err
		}
		plan.Ordering = ordering
	}
	return plan, nil
}

// parseScope reads "property (',' property)*". colon is the terminating
// token, used for error positions.
func parseScope(toks []lexer.Token, colon lexer.Token) ([]queryir.Expression, error) {
	if len(toks) == 0 {
		return nil, ir.NewError(ir.ErrMalformedScope, "empty scope before ':' at %d", colon.Pos)
	}
	var entries []queryir.Expression
	for i, t := range toks {
		if i%2 == 1 {
			if t.Kind != lexer.KindComma {
				return nil, ir.NewError(ir.ErrMalformedScope, "expected ',' between scope entries, got %s", t)
			}
			continue
		}
		switch t.Kind {
		case lexer.KindProperty:
			entries = append(entries, queryir.Path(ir.SplitPath(t.Lexeme)...))
		case lexer.KindFunction, lexer.KindNumber, lexer.KindString, lexer.KindWord:
			return nil, ir.NewError(ir.ErrProjectionEntry, "%s", t)
		default:
			return nil, ir.NewError(ir.ErrMalformedScope, "unexpected %s in scope", t)
		}
	}
	if len(toks)%2 == 0 {
		return nil, ir.NewError(ir.ErrMalformedScope, "trailing ',' before ':' at %d", colon.Pos)
	}
	return entries, nil
}

// parseOrdering reads "[key] [asc|desc] [limit(n)]" after '~'.
func (c *Compiler) parseOrdering(toks []lexer.Token, tilde lexer.Token) (*queryir.Ordering, error) {
	if len(toks) == 0 {
		return nil, ir.NewError(ir.ErrSyntax, "empty ordering after '~' at %d", tilde.Pos)
	}
	o := &queryir.Ordering{Direction: queryir.Asc}
	i := 0
	explicitDirection := false

	if t := toks[i]; t.Kind == lexer.KindProperty {
		o.Key = queryir.Path(ir.SplitPath(t.Lexeme)...)
		i++
	} else if t.Kind == lexer.KindFunction {
		name, inner, ok := lexer.SplitFunction(t.Lexeme)
		switch {
		case ok && name == "orderby":
			key, dir, err := c.parseOrderBy(t, inner)
			if err != nil {
				return nil, err
			}
			o.Key = key
			if dir != "" {
				o.Direction = dir
				explicitDirection = true
			}
			i++
		case ok && name == "limit":
			// no key; handled below
		default:
			p := &exprParser{c: c}
			key, err := p.parseFunction(t)
			if err != nil {
				return nil, err
			}
			o.Key = key
			i++
		}
	}

	if i < len(toks) && toks[i].Kind == lexer.KindWord {
		t := toks[i]
		switch strings.ToLower(t.Lexeme) {
		case "asc", "desc":
			if o.Key == nil {
				return nil, ir.NewError(ir.ErrSyntax, "%s needs an orderby key", t)
			}
			if explicitDirection {
				return nil, ir.NewError(ir.ErrSyntax, "direction given twice at %d", t.Pos)
			}
			o.Direction = queryir.Direction(strings.ToLower(t.Lexeme))
			i++
		default:
			return nil, ir.NewError(ir.ErrSyntax, "expected asc or desc, got %s", t)
		}
	}

	if i < len(toks) && toks[i].Kind == lexer.KindFunction {
		t := toks[i]
		name, inner, ok := lexer.SplitFunction(t.Lexeme)
		if !ok || name != "limit" {
			return nil, ir.NewError(ir.ErrSyntax, "expected limit(n), got %s", t)
		}
		n, err := strconv.Atoi(strings.TrimSpace(inner))
		if err != nil || n < 0 {
			return nil, ir.NewError(ir.ErrSyntax, "limit expects a non-negative integer, got %q", strings.TrimSpace(inner))
		}
		o.Limit = &n
		i++
	}

	if i < len(toks) {
		return nil, ir.NewError(ir.ErrSyntax, "unexpected %s after ordering", toks[i])
	}
	return o, nil
}

// parseOrderBy reads the inside of orderby(expr) or orderby(expr, asc|desc).
func (c *Compiler) parseOrderBy(t lexer.Token, inner string) (queryir.Expression, queryir.Direction, error) {
	spans := lexer.SplitArgs(inner)
	base := t.Pos + len("orderby(")
	var dir queryir.Direction
	if len(spans) == 2 {
		switch d := strings.ToLower(strings.TrimSpace(spans[1].Text)); d {
		case "asc", "desc":
			dir = queryir.Direction(d)
			spans = spans[:1]
		}
	}
	if len(spans) != 1 {
		return nil, "", ir.NewError(ir.ErrSyntax, "orderby expects exactly one expression, got %d at %d", len(spans), t.Pos)
	}
	key, err := c.parseSpan(spans[0], base)
	if err != nil {
		return nil, "", err
	}
	return key, dir, nil
}

// parseSpan re-lexes a slice of a function token and parses it as one
// complete expression. base is the offset of the slice's start in the
// original statement.
func (c *Compiler) parseSpan(span lexer.Span, base int) (queryir.Expression, error) {
	toks := lexer.Lex(span.Text)
	if len(toks) == 0 {
		return nil, ir.NewError(ir.ErrSyntax, "empty argument at %d", base+span.Offset)
	}
	for i := range toks {
		toks[i].Pos += base + span.Offset
	}
	p := &exprParser{c: c, toks: toks}
	return p.parseAll()
}
