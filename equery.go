// Package equery filters, orders and projects collections of JSON-like
// records with one-line statements:
//
//	.name, .likes: .likes > 5 ~ orderby(.likes) desc limit(10)
//
// A statement has an optional scope (the properties to keep), an optional
// condition and an optional ordering clause, in that order. Query runs a
// statement in one call; Compile and Interpret split compilation from
// execution so one plan can run against many datasets. Collection wraps a
// dataset for repeated queries.
//
// Every query failure is a *QueryError carrying a numeric code; use
// errors.Is with the Err* values to match one.
package equery

import (
	"context"
	"sync"

	"github.com/roach88/equery/internal/compiler"
	"github.com/roach88/equery/internal/engine"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/lexer"
	"github.com/roach88/equery/internal/queryir"
)

type (
	// Value is a JSON-like value: String, Number, Boolean, Array or Object.
	Value = ir.Value
	// Object is an ordered list of fields. Field order survives queries.
	Object = ir.Object
	// Dataset is an ordered sequence of rows.
	Dataset = ir.Dataset
	// Token is one lexical unit of a statement.
	Token = lexer.Token
	// Plan is a compiled statement. Plans are immutable and safe to share.
	Plan = queryir.Plan
	// QueryError is the error type of every failed query.
	QueryError = ir.QueryError
)

// Sentinels for errors.Is: each matches any QueryError with its code.
var (
	ErrOrderingType           = &QueryError{Code: ir.ErrOrderingType}
	ErrPropertyNotFound       = &QueryError{Code: ir.ErrPropertyNotFound}
	ErrDatasetShape           = &QueryError{Code: ir.ErrDatasetShape}
	ErrIncompatibleExpression = &QueryError{Code: ir.ErrIncompatibleExpression}
	ErrUnknownFunction        = &QueryError{Code: ir.ErrUnknownFunction}
	ErrOrderByFailure         = &QueryError{Code: ir.ErrOrderByFailure}
	ErrLengthArgument         = &QueryError{Code: ir.ErrLengthArgument}
	ErrNonNumericAggregate    = &QueryError{Code: ir.ErrNonNumericAggregate}
	ErrArgumentCount          = &QueryError{Code: ir.ErrArgumentCount}
	ErrArgumentType           = &QueryError{Code: ir.ErrArgumentType}
	ErrSyntax                 = &QueryError{Code: ir.ErrSyntax}
	ErrMalformedScope         = &QueryError{Code: ir.ErrMalformedScope}
	ErrProjectionEntry        = &QueryError{Code: ir.ErrProjectionEntry}
	ErrRowLimit               = &QueryError{Code: ir.ErrRowLimit}
	ErrUnsupportedValue       = &QueryError{Code: ir.ErrUnsupportedValue}
)

var defaultEngine = sync.OnceValues(func() (*engine.Engine, error) {
	return engine.New()
})

// Lex splits statement text into tokens. Lexing never fails.
func Lex(text string) []Token {
	return lexer.Lex(text)
}

// Parse builds a plan from tokens.
func Parse(tokens []Token) (*Plan, error) {
	return compiler.Parse(tokens)
}

// Compile lexes and parses a statement.
func Compile(statement string) (*Plan, error) {
	return compiler.Compile(statement)
}

// Interpret runs a compiled plan against ds and returns the result rows.
// ds is not modified.
func Interpret(ctx context.Context, plan *Plan, ds Dataset) (Dataset, error) {
	eng, err := defaultEngine()
	if err != nil {
		return nil, err
	}
	res, err := eng.Run(ctx, plan, ds)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Query compiles statement and runs it against data, which is a Dataset,
// a Value holding an array of objects, or any host value ToValue accepts
// that converts to one (for example []map[string]any or a slice of structs).
func Query(ctx context.Context, statement string, data any) (Dataset, error) {
	ds, err := toDataset(data)
	if err != nil {
		return nil, err
	}
	eng, err := defaultEngine()
	if err != nil {
		return nil, err
	}
	res, err := eng.Query(ctx, statement, ds)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// ToValue converts a Go value to a Value. Map keys are sorted; struct
// fields keep declaration order and honour json tags.
func ToValue(host any) (Value, error) {
	return ir.ToValue(host)
}

// ToHost converts v to string, float64, bool, []any or map[string]any.
func ToHost(v Value) any {
	return ir.ToHost(v)
}

func toDataset(data any) (Dataset, error) {
	switch d := data.(type) {
	case Dataset:
		return d, nil
	case []Object:
		return Dataset(d), nil
	}
	v, err := ir.ToValue(data)
	if err != nil {
		return nil, err
	}
	return ir.DatasetFromValue(v)
}

// Collection is a dataset converted once and queried many times.
type Collection struct {
	rows Dataset
}

// NewCollection converts data the way Query does.
func NewCollection(data any) (*Collection, error) {
	ds, err := toDataset(data)
	if err != nil {
		return nil, err
	}
	return &Collection{rows: ds}, nil
}

// Len returns the number of rows.
func (c *Collection) Len() int { return len(c.rows) }

// Rows returns the collection's rows. Callers must not modify them.
func (c *Collection) Rows() Dataset { return c.rows }

// Query runs statement against the collection.
func (c *Collection) Query(ctx context.Context, statement string) (Dataset, error) {
	return Query(ctx, statement, c.rows)
}

// Host runs statement and converts the result rows with ToHost.
func (c *Collection) Host(ctx context.Context, statement string) ([]map[string]any, error) {
	rows, err := c.Query(ctx, statement)
	if err != nil {
		return nil, err
	}
	return ir.DatasetToHost(rows), nil
}
