package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/roach88/equery/internal/compiler"
	"github.com/roach88/equery/internal/functions"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

// Engine runs compiled plans.
//
// Thread-safety: Engine is safe for concurrent use after New returns. All
// per-query state lives in an execution value owned by a single Run call.
type Engine struct {
	registry *functions.Registry
	compiler *compiler.Compiler
	clock    Clock
	ids      IDGenerator
	logger   *slog.Logger
	observer Observer
	quota    *RowQuota
	seq      atomic.Int64

	strictProjection bool

	workers     int
	parallelMin int
	pool        *ants.Pool

	planCacheSize int
	plans         *lru.Cache[string, *queryir.Plan]
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// DefaultMaxRows is the default row ceiling. Zero disables the ceiling.
const DefaultMaxRows = 0

// DefaultPlanCacheSize is the number of compiled statements Query keeps.
const DefaultPlanCacheSize = 128

// defaultParallelMin is the smallest dataset the condition phase fans out for.
const defaultParallelMin = 256

// WithRegistry replaces the built-in function registry.
func WithRegistry(r *functions.Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithClock sets the reference time used by date functions.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithIDGenerator sets the execution ID source. Tests use FixedGenerator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver reports execution statistics, e.g. to Prometheus.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithMaxRows rejects datasets larger than n before filtering. n <= 0
// disables the ceiling.
func WithMaxRows(n int) EngineOption {
	return func(e *Engine) {
		e.quota = NewRowQuota(n)
	}
}

// WithWorkers runs the condition phase on a pool of n goroutines. n <= 1
// keeps evaluation on the calling goroutine.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithPlanCacheSize bounds the compiled-statement cache used by Query.
// n <= 0 disables caching.
func WithPlanCacheSize(n int) EngineOption {
	return func(e *Engine) {
		e.planCacheSize = n
	}
}

// WithStrictProjection makes a projected path that does not resolve a
// fatal ErrPropertyNotFound instead of an omitted field.
func WithStrictProjection(strict bool) EngineOption {
	return func(e *Engine) {
		e.strictProjection = strict
	}
}

// New creates an Engine. Call Close to release the worker pool.
func New(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		registry:      functions.Default(),
		clock:         functions.SystemClock{},
		ids:           UUIDv7Generator{},
		logger:        slog.New(slog.DiscardHandler),
		observer:      nopObserver{},
		quota:         NewRowQuota(DefaultMaxRows),
		parallelMin:   defaultParallelMin,
		planCacheSize: DefaultPlanCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	e.compiler = compiler.New(e.registry)

	if e.planCacheSize > 0 {
		plans, err := lru.New[string, *queryir.Plan](e.planCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create plan cache: %w", err)
		}
		e.plans = plans
	}

	if e.workers > 1 {
		pool, err := ants.NewPool(e.workers, ants.WithPanicHandler(func(v any) {
			e.logger.Error("condition worker panic", "panic", v)
		}))
		if err != nil {
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		e.pool = pool
	}

	e.logger.Debug("engine created",
		"workers", e.workers,
		"max_rows", e.quota.Limit(),
		"plan_cache_size", e.planCacheSize,
		"strict_projection", e.strictProjection)
	return e, nil
}

// Close releases the worker pool. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Registry returns the function registry plans are compiled against.
func (e *Engine) Registry() *functions.Registry {
	return e.registry
}

// Stats describes one execution.
type Stats struct {
	ExecutionID string
	Seq         int64
	InputRows   int
	MatchedRows int
	OutputRows  int
	Aggregates  int
	Duration    time.Duration
}

// Result is the output of a successful execution.
type Result struct {
	Rows  ir.Dataset
	Stats Stats
}

// Compile compiles statement, consulting the plan cache first.
func (e *Engine) Compile(statement string) (*queryir.Plan, error) {
	if e.plans != nil {
		if plan, ok := e.plans.Get(statement); ok {
			e.observer.ObservePlanCache(true)
			return plan, nil
		}
		e.observer.ObservePlanCache(false)
	}
	plan, err := e.compiler.Compile(statement)
	if err != nil {
		return nil, err
	}
	if e.plans != nil {
		e.plans.Add(statement, plan)
	}
	return plan, nil
}

// Query compiles statement and runs it against ds.
func (e *Engine) Query(ctx context.Context, statement string, ds ir.Dataset) (*Result, error) {
	plan, err := e.Compile(statement)
	if err != nil {
		e.observer.ObserveExecution(Stats{}, err)
		return nil, err
	}
	return e.Run(ctx, plan, ds)
}

// Run executes plan against ds. ds is never modified; result rows may share
// nested values with it.
//
// INVARIANTS:
//   - the aggregate cache is created here and dies with this call
//   - phases run condition, order, projection
//   - a fatal error returns no rows
func (e *Engine) Run(ctx context.Context, plan *queryir.Plan, ds ir.Dataset) (*Result, error) {
	start := time.Now()
	x := e.newExecution(ds)
	log := e.logger.With("execution_id", x.id, "seq", x.seq)

	rows, err := x.run(ctx, plan, log)
	stats := x.stats(len(rows), time.Since(start))
	e.observer.ObserveExecution(stats, err)
	if err != nil {
		log.Debug("execution failed", "error", err)
		return nil, err
	}
	log.Debug("execution finished",
		"input_rows", stats.InputRows,
		"matched_rows", stats.MatchedRows,
		"output_rows", stats.OutputRows,
		"duration", stats.Duration)
	return &Result{Rows: rows, Stats: stats}, nil
}

// run drives the three phases with context checks between them.
func (x *execution) run(ctx context.Context, plan *queryir.Plan, log *slog.Logger) (ir.Dataset, error) {
	if err := queryir.Validate(plan); err != nil {
		return nil, err
	}
	if err := x.engine.quota.Check(len(x.dataset)); err != nil {
		return nil, err
	}
	log.Debug("execution started", "rows", len(x.dataset), "plan", plan.String())

	if err := ctx.Err(); err != nil {
		return nil, phaseError(x.id, PhaseCondition, err)
	}
	rows := slices.Clone(x.dataset)
	if plan.Condition != nil {
		var err error
		rows, err = x.filter(ctx, plan.Condition)
		if err != nil {
			return nil, phaseError(x.id, PhaseCondition, err)
		}
		log.Debug("phase complete", "phase", PhaseCondition, "rows", len(rows))
	}
	x.matched = len(rows)

	if err := ctx.Err(); err != nil {
		return nil, phaseError(x.id, PhaseOrder, err)
	}
	if plan.Ordering != nil {
		var err error
		rows, err = x.order(rows, plan.Ordering)
		if err != nil {
			return nil, phaseError(x.id, PhaseOrder, err)
		}
		log.Debug("phase complete", "phase", PhaseOrder, "rows", len(rows))
	}

	if err := ctx.Err(); err != nil {
		return nil, phaseError(x.id, PhaseProjection, err)
	}
	if len(plan.Projection) > 0 {
		var err error
		rows, err = x.project(rows, plan.Projection)
		if err != nil {
			return nil, phaseError(x.id, PhaseProjection, err)
		}
		log.Debug("phase complete", "phase", PhaseProjection, "rows", len(rows))
	}

	if rows == nil {
		rows = ir.Dataset{}
	}
	return rows, nil
}
