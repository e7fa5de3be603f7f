package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/equery/internal/engine"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/metrics"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	InputFormat string // dataset format override (json|yaml|cue)
	Collection  string // stored collection to query instead of a file
	Output      string // write rows here instead of stdout
	Stats       bool   // report execution statistics
	Metrics     bool   // dump Prometheus metrics to stderr
}

// QueryOutput is the JSON payload of a successful query.
type QueryOutput struct {
	Rows  ir.Dataset   `json:"rows"`
	Stats *StatsOutput `json:"stats,omitempty"`
}

// StatsOutput mirrors engine.Stats for JSON output.
type StatsOutput struct {
	ExecutionID string  `json:"execution_id"`
	Seq         int64   `json:"seq"`
	InputRows   int     `json:"input_rows"`
	MatchedRows int     `json:"matched_rows"`
	OutputRows  int     `json:"output_rows"`
	Aggregates  int     `json:"aggregates"`
	DurationMS  float64 `json:"duration_ms"`
}

func newStatsOutput(s engine.Stats) *StatsOutput {
	return &StatsOutput{
		ExecutionID: s.ExecutionID,
		Seq:         s.Seq,
		InputRows:   s.InputRows,
		MatchedRows: s.MatchedRows,
		OutputRows:  s.OutputRows,
		Aggregates:  s.Aggregates,
		DurationMS:  float64(s.Duration) / float64(time.Millisecond),
	}
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <statement> [dataset]",
		Short: "Run a statement against a dataset",
		Long: `Run a statement against a dataset file, stdin or a stored collection.

The dataset must be an array of objects. Its format follows the file
extension (.json, .yaml, .yml, .cue) unless --input-format is given;
stdin is read as JSON.

Exit codes:
  0 - Query succeeded
  1 - The statement failed (syntax, unknown function, ...)
  2 - Command error (unreadable dataset, database errors, ...)

Examples:
  equery query '.likes > 8 ~ orderby(.likes) desc' tweets.json
  cat tweets.json | equery query '.name: length(.name) > 3'
  equery query --collection tweets '.likes = max(.likes)'
  equery query --format json --stats '.likes > 8' tweets.yaml`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			return runQuery(opts, args[0], path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "dataset format (json|yaml|cue)")
	cmd.Flags().StringVarP(&opts.Collection, "collection", "c", "", "query a stored collection")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write result rows to a file")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "report execution statistics")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics to stderr")

	return cmd
}

func runQuery(opts *QueryOptions, statement, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	cfg := opts.settings()

	if opts.Collection != "" && path != "" {
		return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeUsage, Message: "a dataset argument and --collection are mutually exclusive"})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var extra []engine.EngineOption
	var collector *metrics.Collector
	if opts.Metrics {
		collector = metrics.New(nil)
		extra = append(extra, engine.WithObserver(collector))
	}

	eng, err := opts.newEngine(extra...)
	if err != nil {
		return reportError(formatter, ExitCommandError, err)
	}
	defer eng.Close()

	res, err := execute(ctx, opts, eng, statement, path, cfg.Store.Path, cmd)
	if collector != nil {
		if werr := collector.WriteText(cmd.ErrOrStderr()); werr != nil {
			opts.log().Warn("failed to write metrics", "error", werr)
		}
	}
	if err != nil {
		return err
	}

	if opts.Output != "" {
		data, err := ir.MarshalIndent(res.Rows.Value(), "", "  ")
		if err != nil {
			return reportError(formatter, ExitCommandError, err)
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: "writing " + opts.Output, Err: err})
		}
		formatter.VerboseLog("Wrote %d row(s) to %s", len(res.Rows), opts.Output)
	}

	return outputQueryResult(formatter, opts, res)
}

// execute loads the dataset (or opens the store) and runs the statement.
// Failures are reported through the formatter before returning.
func execute(ctx context.Context, opts *QueryOptions, eng *engine.Engine, statement, path, dbPath string, cmd *cobra.Command) (*engine.Result, error) {
	formatter := opts.newFormatter(cmd)

	var (
		res *engine.Result
		err error
	)
	if opts.Collection != "" {
		st, openErr := OpenStore(dbPath)
		if openErr != nil {
			return nil, reportError(formatter, ExitCommandError, openErr)
		}
		defer st.Close()
		formatter.VerboseLog("Querying collection %s in %s", opts.Collection, dbPath)
		res, err = eng.QueryCollection(ctx, st, opts.Collection, statement)
	} else {
		ds, loadErr := LoadDataset(path, opts.InputFormat, cmd.InOrStdin())
		if loadErr != nil {
			return nil, reportError(formatter, ExitCommandError, loadErr)
		}
		formatter.VerboseLog("Loaded %d row(s)", len(ds))
		res, err = eng.Query(ctx, statement, ds)
	}

	if err != nil {
		if engine.IsCanceled(err) {
			_ = formatter.Error(ErrCodeGeneric, "query canceled", nil)
			return nil, reported(WrapExitError(ExitCommandError, "query canceled", err))
		}
		phase, _ := engine.PhaseOf(err)
		return nil, formatter.QueryError(err, string(phase))
	}
	return res, nil
}

func outputQueryResult(formatter *OutputFormatter, opts *QueryOptions, res *engine.Result) error {
	rows := res.Rows
	if rows == nil {
		rows = ir.Dataset{}
	}

	if formatter.Format == "json" {
		out := QueryOutput{Rows: rows}
		if opts.Stats {
			out.Stats = newStatsOutput(res.Stats)
		}
		return formatter.encode(CLIResponse{
			Status:  "ok",
			Data:    out,
			TraceID: res.Stats.ExecutionID,
		})
	}

	if opts.Output == "" {
		data, err := ir.MarshalIndent(rows.Value(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	if opts.Stats {
		s := res.Stats
		fmt.Fprintf(formatter.GetErrWriter(), "execution %s: %d input, %d matched, %d output row(s), %d aggregate(s) in %s\n",
			s.ExecutionID, s.InputRows, s.MatchedRows, s.OutputRows, s.Aggregates, s.Duration)
	}
	return nil
}
