package engine

import (
	"context"
	"fmt"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
	"github.com/roach88/equery/internal/querysql"
)

// DocumentSource loads stored documents with SQL produced by querysql.
// store.Store implements it.
type DocumentSource interface {
	QueryDocuments(ctx context.Context, query string, args ...any) (ir.Dataset, error)
}

// RunCollection executes plan against a stored collection.
//
// When the plan is row-local (no aggregate in the condition or order key),
// the pushable part of the condition is compiled into the SQL WHERE clause.
// That prefilter only ever keeps a superset of the matching rows, and the
// full plan is still applied to what it returns. Plans with aggregates load
// the whole collection, since aggregates must see every row.
func (e *Engine) RunCollection(ctx context.Context, src DocumentSource, collection string, plan *queryir.Plan) (*Result, error) {
	if plan == nil {
		return nil, ir.NewError(ir.ErrSyntax, "nil plan")
	}

	var cond queryir.Expression
	analysis := queryir.Analyze(plan, e.registry.IsAggregate)
	if analysis.RowLocal {
		cond = plan.Condition
	} else {
		e.logger.Debug("prefilter disabled", "collection", collection, "reasons", analysis.Warnings)
	}

	sqlStr, params := querysql.NewSQLCompiler().CompileSelect(collection, cond)
	ds, err := src.QueryDocuments(ctx, sqlStr, params...)
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collection, err)
	}
	e.logger.Debug("collection loaded", "collection", collection, "rows", len(ds), "sql", sqlStr)

	return e.Run(ctx, plan, ds)
}

// QueryCollection compiles statement and runs it with RunCollection.
func (e *Engine) QueryCollection(ctx context.Context, src DocumentSource, collection, statement string) (*Result, error) {
	plan, err := e.Compile(statement)
	if err != nil {
		return nil, err
	}
	return e.RunCollection(ctx, src, collection, plan)
}
