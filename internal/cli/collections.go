package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/store"
)

// CollectionsOptions holds flags for the collections command.
type CollectionsOptions struct {
	*RootOptions
	Drop     string // collection to delete
	Contains string // JSON object to locate
	Rows     bool   // print the rows of the named collection
}

// CollectionOutput is the JSON payload for a single collection.
type CollectionOutput struct {
	store.CollectionInfo
	Data ir.Dataset `json:"data,omitempty"`
}

// NewCollectionsCommand creates the collections command.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CollectionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "collections [name]",
		Short: "List, inspect or drop stored collections",
		Long: `Manage the collections stored in the database (--db).

Without arguments every collection is listed with its row count and
fingerprint. With a name only that collection is shown; --rows prints its
rows too. --contains finds every stored copy of a row, whatever the key
order of the given JSON object.

Examples:
  equery collections
  equery collections --rows tweets
  equery collections --drop tweets
  equery collections --contains '{"name": "Amy", "likes": 20}'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runCollections(opts, name, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Drop, "drop", "", "delete a collection")
	cmd.Flags().StringVar(&opts.Contains, "contains", "", "locate a row given as a JSON object")
	cmd.Flags().BoolVar(&opts.Rows, "rows", false, "print the rows of the named collection")
	cmd.MarkFlagsMutuallyExclusive("drop", "contains")

	return cmd
}

func runCollections(opts *CollectionsOptions, name string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	ctx := cmd.Context()

	st, err := OpenStore(opts.settings().Store.Path)
	if err != nil {
		return reportError(formatter, ExitCommandError, err)
	}
	defer st.Close()

	switch {
	case opts.Drop != "":
		dropped, err := st.Drop(ctx, opts.Drop)
		if err != nil {
			return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeStore, Message: "dropping " + opts.Drop, Err: err})
		}
		if !dropped {
			return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeNotFound, Message: "collection not found: " + opts.Drop})
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]string{"dropped": opts.Drop})
		}
		fmt.Fprintf(formatter.Writer, "✓ Dropped %s\n", opts.Drop)
		return nil

	case opts.Contains != "":
		return locateRow(formatter, st, opts.Contains, cmd)

	case name != "":
		return showCollection(formatter, st, name, opts.Rows, cmd)
	}

	infos, err := st.Collections(ctx)
	if err != nil {
		return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeStore, Message: "listing collections", Err: err})
	}
	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No collections.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%-24s %8d  %s\n", info.Name, info.Rows, info.Fingerprint)
	}
	return nil
}

func showCollection(formatter *OutputFormatter, st *store.Store, name string, withRows bool, cmd *cobra.Command) error {
	info, err := st.Collection(cmd.Context(), name)
	if errors.Is(err, sql.ErrNoRows) {
		return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeNotFound, Message: "collection not found: " + name})
	}
	if err != nil {
		return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeStore, Message: "reading " + name, Err: err})
	}

	out := CollectionOutput{CollectionInfo: info}
	if withRows {
		if out.Data, err = st.Load(cmd.Context(), name); err != nil {
			return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeStore, Message: "loading " + name, Err: err})
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "%s: %d row(s), fingerprint %s\n", info.Name, info.Rows, info.Fingerprint)
	if withRows {
		data, err := ir.MarshalIndent(out.Data.Value(), "", "  ")
		if err != nil {
			return reportError(formatter, ExitCommandError, err)
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	return nil
}

func locateRow(formatter *OutputFormatter, st *store.Store, src string, cmd *cobra.Command) error {
	v, err := ir.UnmarshalValue([]byte(src))
	if err != nil {
		return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeReadFailed, Message: "decoding --contains", Err: err})
	}
	row, ok := v.(ir.Object)
	if !ok {
		return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeDataset, Message: "--contains must be a JSON object"})
	}

	locs, err := st.Locate(cmd.Context(), row)
	if err != nil {
		return reportError(formatter, ExitCommandError, &LoadError{Code: ErrCodeStore, Message: "locating row", Err: err})
	}
	if formatter.Format == "json" {
		return formatter.Success(locs)
	}
	if len(locs) == 0 {
		fmt.Fprintln(formatter.Writer, "Not found.")
		return nil
	}
	for _, loc := range locs {
		fmt.Fprintf(formatter.Writer, "%s #%d\n", loc.Collection, loc.Seq)
	}
	return nil
}
