package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/equery/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	InputFormat string
	Append      bool
}

// ImportOutput is the JSON payload of the import command.
type ImportOutput struct {
	Collection store.CollectionInfo `json:"collection"`
	Imported   int                  `json:"imported"`
	Unchanged  bool                 `json:"unchanged"`
	Appended   bool                 `json:"appended"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <collection> [dataset]",
		Short: "Store a dataset as a named collection",
		Long: `Store a dataset in the collection database (--db) so it can be queried
with "equery query --collection".

Import replaces the collection's rows; importing the same dataset again
is detected by fingerprint and writes nothing. --append adds the rows
after the existing ones instead.

Examples:
  equery import tweets tweets.json
  equery import --db data.db --append tweets more-tweets.yaml`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			return runImport(opts, args[0], path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "dataset format (json|yaml|cue)")
	cmd.Flags().BoolVar(&opts.Append, "append", false, "append rows instead of replacing the collection")

	return cmd
}

func runImport(opts *ImportOptions, collection, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	dbPath := opts.settings().Store.Path

	ds, err := LoadDataset(path, opts.InputFormat, cmd.InOrStdin())
	if err != nil {
		return reportError(formatter, ExitCommandError, err)
	}

	st, err := OpenStore(dbPath)
	if err != nil {
		return reportError(formatter, ExitCommandError, err)
	}
	defer st.Close()

	out := ImportOutput{Imported: len(ds), Appended: opts.Append}
	if opts.Append {
		out.Collection, err = st.Append(cmd.Context(), collection, ds)
	} else {
		var res store.ImportResult
		res, err = st.Import(cmd.Context(), collection, ds)
		out.Collection, out.Unchanged = res.Collection, res.Unchanged
	}
	if err != nil {
		return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeStore, Message: "importing " + collection, Err: err})
	}
	if out.Unchanged {
		out.Imported = 0
	}
	opts.log().Info("collection stored",
		"collection", collection,
		"db", dbPath,
		"rows", out.Collection.Rows,
		"unchanged", out.Unchanged)

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	w := formatter.Writer
	switch {
	case out.Unchanged:
		fmt.Fprintf(w, "✓ %s unchanged (%d row(s), fingerprint %s)\n", collection, out.Collection.Rows, out.Collection.Fingerprint)
	case opts.Append:
		fmt.Fprintf(w, "✓ Appended %d row(s) to %s (%d total)\n", len(ds), collection, out.Collection.Rows)
	default:
		fmt.Fprintf(w, "✓ Imported %d row(s) into %s (fingerprint %s)\n", len(ds), collection, out.Collection.Fingerprint)
	}
	return nil
}
