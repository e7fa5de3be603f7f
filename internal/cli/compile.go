package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/equery/internal/compiler"
	"github.com/roach88/equery/internal/functions"
	"github.com/roach88/equery/internal/queryir"
	"github.com/roach88/equery/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Collection string // show the SQL used to load this collection
	Output     string // output file path
}

// PlanOutput describes a compiled statement.
type PlanOutput struct {
	Statement  string       `json:"statement"`
	Plan       string       `json:"plan"`
	Projection []string     `json:"projection,omitempty"`
	Condition  string       `json:"condition,omitempty"`
	Ordering   *OrderOutput `json:"ordering,omitempty"`
	RowLocal   bool         `json:"row_local"`
	Aggregates []string     `json:"aggregates,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	SQL        string       `json:"sql,omitempty"`
	Params     []any        `json:"params,omitempty"`
}

// OrderOutput describes the ordering clause of a plan.
type OrderOutput struct {
	Key       string `json:"key,omitempty"`
	Direction string `json:"direction,omitempty"`
	Limit     *int   `json:"limit,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <statement>",
		Short: "Compile a statement and print its plan",
		Long: `Compile a statement without running it.

Prints the normalized plan with explicit parentheses, its clauses, and
whether the condition can be evaluated row by row. With --collection the
SQL used to load that collection is shown too; row-local plans push the
simple parts of their condition into the WHERE clause.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Collection, "collection", "c", "", "show the SQL prefilter for a collection")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the plan as JSON to a file")

	return cmd
}

func runCompile(opts *CompileOptions, statement string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	registry := functions.Default()
	plan, err := compiler.New(registry).Compile(statement)
	if err != nil {
		return formatter.QueryError(err, "")
	}

	out := describePlan(statement, plan, registry)
	if opts.Collection != "" {
		var cond queryir.Expression
		if out.RowLocal {
			cond = plan.Condition
		}
		out.SQL, out.Params = querysql.NewSQLCompiler().CompileSelect(opts.Collection, cond)
	}

	if opts.Output != "" {
		if err := writePlanToFile(out, opts.Output); err != nil {
			return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: "writing output file", Err: err})
		}
		formatter.VerboseLog("Wrote plan to %s", opts.Output)
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	writePlanText(formatter.Writer, out)
	return nil
}

// describePlan flattens a plan into its output form.
func describePlan(statement string, plan *queryir.Plan, registry *functions.Registry) PlanOutput {
	analysis := queryir.Analyze(plan, registry.IsAggregate)
	out := PlanOutput{
		Statement:  statement,
		Plan:       plan.String(),
		RowLocal:   analysis.RowLocal,
		Aggregates: analysis.Aggregates,
		Warnings:   analysis.Warnings,
	}
	for _, e := range plan.Projection {
		out.Projection = append(out.Projection, e.String())
	}
	if plan.Condition != nil {
		out.Condition = plan.Condition.String()
	}
	if o := plan.Ordering; o != nil {
		out.Ordering = &OrderOutput{Limit: o.Limit}
		if o.Key != nil {
			out.Ordering.Key = o.Key.String()
			out.Ordering.Direction = string(o.Direction)
		}
	}
	return out
}

func writePlanText(w io.Writer, out PlanOutput) {
	fmt.Fprintf(w, "plan:       %s\n", out.Plan)
	if len(out.Projection) > 0 {
		fmt.Fprintf(w, "projection: %s\n", strings.Join(out.Projection, ", "))
	}
	if out.Condition != "" {
		fmt.Fprintf(w, "condition:  %s\n", out.Condition)
	}
	if o := out.Ordering; o != nil {
		if o.Key != "" {
			fmt.Fprintf(w, "order by:   %s %s\n", o.Key, o.Direction)
		}
		if o.Limit != nil {
			fmt.Fprintf(w, "limit:      %d\n", *o.Limit)
		}
	}
	fmt.Fprintf(w, "row-local:  %t\n", out.RowLocal)
	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "warning:    %s\n", warning)
	}
	if out.SQL != "" {
		fmt.Fprintf(w, "sql:        %s\n", out.SQL)
		params, _ := json.Marshal(out.Params)
		fmt.Fprintf(w, "params:     %s\n", params)
	}
}

// writePlanToFile writes the plan as indented JSON.
func writePlanToFile(out PlanOutput, path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
