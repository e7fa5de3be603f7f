package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/roach88/equery/internal/dataset"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/store"
)

// Error code constants - unified across all CLI commands. Errors raised by
// a statement use QueryErrorCode instead.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Input could not be read or decoded
	ErrCodeBadFormat   = "E003" // Unknown dataset or schema format
	ErrCodeDataset     = "E004" // Input is not an array of objects
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStore       = "E006" // Collection database error
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeUsage       = "E008" // Conflicting or missing arguments

	// Schema errors
	ErrCodeSchema     = "E101" // Schema could not be compiled
	ErrCodeInvalidRow = "E102" // A row violates the schema

	// Harness errors
	ErrCodeTestFailed = "E201" // One or more scenarios failed
)

// LoadError represents an error that occurred while loading input.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadDataset reads a dataset from path. An empty path or "-" reads from
// stdin. format overrides the extension-based choice; it defaults to JSON
// for stdin.
func LoadDataset(path, format string, stdin io.Reader) (ir.Dataset, error) {
	f := dataset.FormatJSON
	if path != "" && path != "-" {
		f = dataset.FormatOf(path)
	}
	if format != "" {
		parsed, err := dataset.ParseFormat(format)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBadFormat, Message: err.Error()}
		}
		f = parsed
	}

	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
		path = "<stdin>"
	} else {
		data, err = os.ReadFile(path)
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("dataset not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s", path), Err: err}
	}

	ds, err := dataset.Parse(data, f)
	if err != nil {
		code := ErrCodeReadFailed
		if ir.HasCode(err, ir.ErrDatasetShape) {
			code = ErrCodeDataset
		}
		return nil, &LoadError{Code: code, Message: fmt.Sprintf("decoding %s as %s", path, f), Err: err}
	}
	return ds, nil
}

// OpenStore opens the collection database at path.
func OpenStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("opening database %s", path), Err: err}
	}
	return st, nil
}

// reportError prints err through formatter and converts it to an
// ExitError. LoadErrors keep their code; anything else is E001.
func reportError(formatter *OutputFormatter, exitCode int, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, loadErr.Err)
		}
		_ = formatter.Error(loadErr.Code, msg, nil)
		return reported(WrapExitError(exitCode, loadErr.Code, err))
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return reported(WrapExitError(exitCode, ErrCodeGeneric, err))
}
