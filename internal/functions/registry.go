// Package functions provides the closed set of built-in functions a
// statement may call.
//
// Built-ins come in two shapes. A Scalar maps its evaluated arguments to a
// value for the current row. An Aggregate maps its (unevaluated) argument
// over the whole pre-filter dataset and reduces the results to one value;
// the engine caches that value for the rest of the execution.
package functions

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

// Builtin is a registered function. Only Scalar and Aggregate implement it.
type Builtin interface {
	builtin() // Sealed - only Scalar and Aggregate implement it

	// Name is the identifier used in statements.
	Name() string

	// CheckArity returns an ErrArgumentCount error when n arguments are
	// not acceptable.
	CheckArity(n int) error

	// Signature renders the expected shape, e.g. "contains(any, any)".
	Signature() string
}

// Env supplies the ambient state scalar functions may read.
type Env interface {
	// Now is the reference instant for date functions.
	Now() time.Time
}

// RowEvaluator evaluates a function argument against one row. Arrays and
// objects are returned as values. With strictPaths, an argument that is a
// bare property path and does not resolve is an ErrPropertyNotFound error
// instead of Boolean(false).
type RowEvaluator interface {
	EvalArg(expr queryir.Expression, row ir.Object, strictPaths bool) (ir.Value, error)
}

// Registry maps names to built-ins. A Registry is read-only after
// construction and safe for concurrent use.
type Registry struct {
	builtins map[string]Builtin
}

// NewRegistry builds a registry from the given built-ins. A later entry
// with the same name replaces an earlier one.
func NewRegistry(builtins ...Builtin) *Registry {
	r := &Registry{builtins: make(map[string]Builtin, len(builtins))}
	for _, b := range builtins {
		r.builtins[b.Name()] = b
	}
	return r
}

// Default returns the standard registry.
func Default() *Registry {
	return defaultRegistry
}

var defaultRegistry = NewRegistry(slices.Concat(aggregates(), scalars(), dateScalars())...)

// Lookup returns the built-in registered under name.
func (r *Registry) Lookup(name string) (Builtin, bool) {
	b, ok := r.builtins[name]
	return b, ok
}

// Resolve is Lookup returning an ErrUnknownFunction error on a miss.
func (r *Registry) Resolve(name string) (Builtin, error) {
	b, ok := r.builtins[name]
	if !ok {
		return nil, ir.NewError(ir.ErrUnknownFunction, "%s", name)
	}
	return b, nil
}

// IsAggregate reports whether name is a registered aggregate.
func (r *Registry) IsAggregate(name string) bool {
	_, ok := r.builtins[name].(*Aggregate)
	return ok
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func arityError(name string, lo, hi, got int) error {
	if lo == hi {
		return ir.NewError(ir.ErrArgumentCount, "%s expects %d %s, got %d", name, lo, plural(lo), got)
	}
	return ir.NewError(ir.ErrArgumentCount, "%s expects %d to %d arguments, got %d", name, lo, hi, got)
}

func plural(n int) string {
	if n == 1 {
		return "argument"
	}
	return "arguments"
}

// SystemClock is the Env used outside tests.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock is an Env frozen at one instant, for deterministic tests.
type FixedClock time.Time

// Now returns the frozen instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// String describes the registry for debugging.
func (r *Registry) String() string {
	return fmt.Sprintf("functions.Registry(%d builtins)", len(r.builtins))
}
