package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/equery/internal/engine"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/schema"
	"github.com/roach88/equery/internal/store"
)

// REPLOptions holds flags for the repl command.
type REPLOptions struct {
	*RootOptions
	InputFormat string
	Collection  string
}

// lineReader is the part of liner.State the loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// session is the state behind one interactive loop.
type session struct {
	eng        *engine.Engine
	rows       ir.Dataset   // used when no collection is set
	store      *store.Store // used with collection
	collection string
	out        io.Writer
}

const replHelp = `Enter a statement to run it, for example
  .name, .likes: .likes > 8 ~ orderby(.likes) desc

Commands:
  \plan <statement>  show the compiled plan
  \schema            show the inferred row schema
  \count             show the number of rows
  \help              show this help
  \q                 quit`

// NewREPLCommand creates the repl command.
func NewREPLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &REPLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl [dataset]",
		Short: "Query a dataset interactively",
		Long: `Load a dataset (or open a stored collection) once and run statements
against it line by line. Type \help for commands; Ctrl-D quits.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runREPL(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "dataset format (json|yaml|cue)")
	cmd.Flags().StringVarP(&opts.Collection, "collection", "c", "", "query a stored collection")

	return cmd
}

func runREPL(opts *REPLOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	eng, err := opts.newEngine()
	if err != nil {
		return reportError(formatter, ExitCommandError, err)
	}
	defer eng.Close()

	s := &session{eng: eng, out: cmd.OutOrStdout(), collection: opts.Collection}
	if opts.Collection != "" {
		st, err := OpenStore(opts.settings().Store.Path)
		if err != nil {
			return reportError(formatter, ExitCommandError, err)
		}
		defer st.Close()
		s.store = st
	} else {
		if path == "" {
			return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeUsage, Message: "repl needs a dataset file or --collection"})
		}
		if s.rows, err = LoadDataset(path, opts.InputFormat, cmd.InOrStdin()); err != nil {
			return reportError(formatter, ExitCommandError, err)
		}
	}

	lin := liner.NewLiner()
	defer lin.Close()
	lin.SetCtrlCAborts(true)
	lin.SetMultiLineMode(true)

	return s.loop(cmd.Context(), lin)
}

// loop reads lines until EOF or \q.
func (s *session) loop(ctx context.Context, in lineReader) error {
	for {
		line, err := in.Prompt("> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading prompt: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in.AppendHistory(line)
		if line == `\q` {
			return nil
		}
		s.eval(ctx, line)
	}
}

// eval runs one line. Errors are printed, never returned.
func (s *session) eval(ctx context.Context, line string) {
	switch {
	case line == `\help`:
		fmt.Fprintln(s.out, replHelp)
	case line == `\count`:
		rows, err := s.dataset(ctx)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(s.out, "%d row(s)\n", len(rows))
	case line == `\schema`:
		rows, err := s.dataset(ctx)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return
		}
		fmt.Fprintln(s.out, schema.Infer(rows).String())
	case strings.HasPrefix(line, `\plan `):
		plan, err := s.eng.Compile(strings.TrimSpace(strings.TrimPrefix(line, `\plan `)))
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return
		}
		fmt.Fprintln(s.out, plan.String())
	case strings.HasPrefix(line, `\`):
		fmt.Fprintf(s.out, "unknown command %s (try \\help)\n", strings.Fields(line)[0])
	default:
		s.query(ctx, line)
	}
}

func (s *session) query(ctx context.Context, statement string) {
	var (
		res *engine.Result
		err error
	)
	if s.store != nil {
		res, err = s.eng.QueryCollection(ctx, s.store, s.collection, statement)
	} else {
		res, err = s.eng.Query(ctx, statement, s.rows)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	data, err := ir.MarshalIndent(res.Rows.Value(), "", "  ")
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "= %s\n\n", data)
}

// dataset returns the rows statements run against.
func (s *session) dataset(ctx context.Context) (ir.Dataset, error) {
	if s.store != nil {
		return s.store.Load(ctx, s.collection)
	}
	return s.rows, nil
}
