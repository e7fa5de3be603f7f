package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/schema"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	InputFormat string
	As          string // text | jsonschema | cue
}

// SchemaOutput is the JSON payload of the schema command.
type SchemaOutput struct {
	Rows       int       `json:"rows"`
	Descriptor string    `json:"descriptor"`
	JSONSchema ir.Object `json:"json_schema"`
	CUE        string    `json:"cue"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema [dataset]",
		Short: "Infer the row schema of a dataset",
		Long: `Infer a schema that every row of the dataset satisfies.

Properties missing from some rows, or holding different kinds of value,
are marked optional. The schema can be printed as a descriptor, a JSON
Schema document or a CUE definition, and fed back to validate.

Examples:
  equery schema tweets.json
  equery schema --as jsonschema tweets.json > tweets.schema.json
  equery schema --as cue tweets.yaml > tweets.cue`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runSchema(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "dataset format (json|yaml|cue)")
	cmd.Flags().StringVar(&opts.As, "as", "text", "schema notation (text|jsonschema|cue)")

	return cmd
}

func runSchema(opts *SchemaOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	switch opts.As {
	case "text", "jsonschema", "cue":
	default:
		return reportError(formatter, ExitCommandError, &LoadError{
			Code:    ErrCodeBadFormat,
			Message: fmt.Sprintf("unknown schema notation %q (want text, jsonschema or cue)", opts.As),
		})
	}

	ds, err := LoadDataset(path, opts.InputFormat, cmd.InOrStdin())
	if err != nil {
		return reportError(formatter, ExitCommandError, err)
	}
	d := schema.Infer(ds)
	formatter.VerboseLog("Inferred schema from %d row(s)", len(ds))

	if formatter.Format == "json" {
		return formatter.Success(SchemaOutput{
			Rows:       len(ds),
			Descriptor: d.String(),
			JSONSchema: schema.ToJSONSchema(d),
			CUE:        schema.ToCUE(d),
		})
	}

	switch opts.As {
	case "jsonschema":
		data, err := ir.MarshalIndent(schema.ToJSONSchema(d), "", "  ")
		if err != nil {
			return reportError(formatter, ExitCommandError, err)
		}
		fmt.Fprintln(formatter.Writer, string(data))
	case "cue":
		fmt.Fprint(formatter.Writer, schema.ToCUE(d))
	default:
		fmt.Fprintln(formatter.Writer, d.String())
	}
	return nil
}
