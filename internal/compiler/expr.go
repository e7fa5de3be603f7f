package compiler

import (
	"strconv"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/lexer"
	"github.com/roach88/equery/internal/queryir"
)

// operators maps operator tokens to queryir operators.
var operators = map[lexer.Kind]queryir.Operator{
	lexer.KindPlus:    queryir.OpAdd,
	lexer.KindMinus:   queryir.OpSub,
	lexer.KindStar:    queryir.OpMul,
	lexer.KindSlash:   queryir.OpDiv,
	lexer.KindAmp:     queryir.OpAnd,
	lexer.KindPipe:    queryir.OpOr,
	lexer.KindLess:    queryir.OpLess,
	lexer.KindGreater: queryir.OpGreater,
	lexer.KindEqual:   queryir.OpEqual,
}

// exprParser is a precedence-climbing parser over one token slice.
type exprParser struct {
	c    *Compiler
	toks []lexer.Token
	pos  int
}

func (p *exprParser) peek() (lexer.Token, bool) {
	if p.pos >= len(p.toks) {
		return lexer.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) endPos() int {
	if len(p.toks) == 0 {
		return 0
	}
	last := p.toks[len(p.toks)-1]
	return last.Pos + len(last.Lexeme)
}

// parseAll parses one expression that must consume every token.
func (p *exprParser) parseAll() (queryir.Expression, error) {
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok {
		return nil, ir.NewError(ir.ErrSyntax, "unexpected %s", t)
	}
	return expr, nil
}

// parseExpr parses a primary, then folds in operators whose precedence is
// at least minPrec. The right operand is parsed with prec+1, which makes
// every operator left-associative.
func (p *exprParser) parseExpr(minPrec int) (queryir.Expression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok {
			return left, nil
		}
		op, isOp := operators[t.Kind]
		if !isOp || op.Precedence() < minPrec {
			return left, nil
		}
		p.pos++
		right, err := p.parseExpr(op.Precedence() + 1)
		if err != nil {
			return nil, err
		}
		left = queryir.BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parsePrimary() (queryir.Expression, error) {
	t, ok := p.peek()
	if !ok {
		return nil, ir.NewError(ir.ErrSyntax, "expected expression at %d", p.endPos())
	}
	p.pos++

	switch t.Kind {
	case lexer.KindNumber:
		return parseNumber(t, false)
	case lexer.KindString:
		return queryir.Literal{Value: ir.String(t.Lexeme)}, nil
	case lexer.KindProperty:
		return queryir.Path(ir.SplitPath(t.Lexeme)...), nil
	case lexer.KindWord:
		switch t.Lexeme {
		case "true":
			return queryir.Literal{Value: ir.Boolean(true)}, nil
		case "false":
			return queryir.Literal{Value: ir.Boolean(false)}, nil
		}
		return nil, ir.NewError(ir.ErrSyntax, "unexpected %s", t)
	case lexer.KindFunction:
		return p.parseFunction(t)
	case lexer.KindMinus:
		next, ok := p.peek()
		if !ok || next.Kind != lexer.KindNumber {
			return nil, ir.NewError(ir.ErrSyntax, "unary '-' must precede a number at %d", t.Pos)
		}
		p.pos++
		return parseNumber(next, true)
	case lexer.KindLParen:
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok {
			return nil, ir.NewError(ir.ErrSyntax, "missing ')' for '(' at %d", t.Pos)
		}
		if closing.Kind != lexer.KindRParen {
			return nil, ir.NewError(ir.ErrSyntax, "expected ')', got %s", closing)
		}
		p.pos++
		return inner, nil
	default:
		return nil, ir.NewError(ir.ErrSyntax, "unexpected %s", t)
	}
}

func parseNumber(t lexer.Token, negate bool) (queryir.Expression, error) {
	f, err := strconv.ParseFloat(t.Lexeme, 64)
	if err != nil {
		return nil, ir.NewError(ir.ErrSyntax, "invalid number %s", t)
	}
	if negate {
		f = -f
	}
	return queryir.Literal{Value: ir.Number(f)}, nil
}

// parseFunction resolves the name, then splits the argument text on
// top-level commas and parses each part as a full expression.
func (p *exprParser) parseFunction(t lexer.Token) (queryir.Expression, error) {
	name, inner, ok := lexer.SplitFunction(t.Lexeme)
	if !ok {
		return nil, ir.NewError(ir.ErrSyntax, "unterminated call %s", t)
	}
	builtin, err := p.c.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	base := t.Pos + len(name) + 1
	spans := lexer.SplitArgs(inner)
	args := make([]queryir.Expression, 0, len(spans))
	for _, span := range spans {
		arg, err := p.c.parseSpan(span, base)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if err := builtin.CheckArity(len(args)); err != nil {
		return nil, err
	}
	return queryir.FunctionCall{Name: name, Args: args}, nil
}
