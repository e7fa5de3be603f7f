package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	InputFormat string
	Schema      string // JSON Schema (.json) or CUE (.cue) file
	Like        string // infer the schema from this dataset
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool               `json:"valid"`
	Rows       int                `json:"rows"`
	Row        *int               `json:"row,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

// rowValidator is implemented by every schema form validate accepts.
type rowValidator interface {
	ValidateDataset(ds ir.Dataset) error
}

// inferred validates against a descriptor built by schema.Infer.
type inferred struct {
	d schema.Descriptor
}

func (v inferred) ValidateDataset(ds ir.Dataset) error {
	return schema.ValidateDataset(ds, v.d)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <dataset>",
		Short: "Check a dataset against a schema",
		Long: `Check that a file is a dataset (an array of objects) and, optionally, that
every row satisfies a schema.

The schema is either a file, JSON Schema for .json and CUE for .cue (a CUE
file declaring #Row is checked against that definition), or inferred from
another dataset with --like.

Exit codes:
  0 - Every row is valid
  1 - A row violates the schema
  2 - Command error (unreadable dataset or schema)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "dataset format (json|yaml|cue)")
	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file (.json or .cue)")
	cmd.Flags().StringVar(&opts.Like, "like", "", "infer the schema from another dataset")
	cmd.MarkFlagsMutuallyExclusive("schema", "like")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	ds, err := LoadDataset(path, opts.InputFormat, cmd.InOrStdin())
	if err != nil {
		return reportError(formatter, ExitCommandError, err)
	}
	formatter.VerboseLog("Loaded %d row(s) from %s", len(ds), path)

	v, err := loadValidator(opts, cmd.InOrStdin())
	if err != nil {
		return reportError(formatter, ExitCommandError, err)
	}

	if v != nil {
		if err := v.ValidateDataset(ds); err != nil {
			var verr *schema.ValidationError
			if !errors.As(err, &verr) {
				return reportError(formatter, ExitCommandError, err)
			}
			return outputValidationErrors(formatter, len(ds), verr)
		}
	}

	return outputValidateSuccess(formatter, len(ds))
}

// loadValidator builds the validator named by the flags, or nil when
// only the dataset shape is checked.
func loadValidator(opts *ValidateOptions, stdin io.Reader) (rowValidator, error) {
	switch {
	case opts.Schema != "":
		src, err := os.ReadFile(opts.Schema)
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", opts.Schema)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeReadFailed, Message: "reading " + opts.Schema, Err: err}
		}
		var v rowValidator
		if strings.EqualFold(filepath.Ext(opts.Schema), ".cue") {
			v, err = schema.CompileCUE(string(src))
		} else {
			v, err = schema.CompileJSONSchema(src)
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeSchema, Message: opts.Schema, Err: err}
		}
		return v, nil
	case opts.Like != "":
		ref, err := LoadDataset(opts.Like, "", stdin)
		if err != nil {
			return nil, err
		}
		return inferred{d: schema.Infer(ref)}, nil
	default:
		return nil, nil
	}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, rows int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Rows: rows})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d row(s) valid\n", rows)
	return nil
}

// outputValidationErrors outputs the violations of the first failing row.
func outputValidationErrors(formatter *OutputFormatter, rows int, verr *schema.ValidationError) error {
	msg := fmt.Sprintf("row %d violates the schema", verr.Row)

	if formatter.Format == "json" {
		row := verr.Row
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:      false,
				Rows:       rows,
				Row:        &row,
				Violations: verr.Violations,
			},
			Error: &CLIError{
				Code:    ErrCodeInvalidRow,
				Message: msg,
			},
		}
		if err := formatter.encodeIndented(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return reported(NewExitError(ExitFailure, msg))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "row %d\n", verr.Row)
	for _, v := range verr.Violations {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", ErrCodeInvalidRow, v.Path, v.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return reported(NewExitError(ExitFailure, msg))
}
