package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/equery/internal/ir"
)

// Format is a dataset file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// ParseFormat accepts a format name as given on the command line.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("unknown dataset format %q (want json, yaml or cue)", name)
}

// FormatOf picks a format from a file extension. Unknown extensions are
// read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".cue":
		return FormatCUE
	default:
		return FormatJSON
	}
}

// LoadFile reads a dataset from path, choosing the decoder by extension.
// The path "-" reads JSON from stdin.
func LoadFile(path string) (ir.Dataset, error) {
	if path == "-" {
		return Decode(os.Stdin, FormatJSON)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	ds, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Decode reads all of r and parses it as format.
func Decode(r io.Reader, format Format) (ir.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes data as format. The top-level value must be an array of
// objects; anything else is an ErrDatasetShape error.
func Parse(data []byte, format Format) (ir.Dataset, error) {
	var (
		v   ir.Value
		err error
	)
	switch format {
	case FormatJSON:
		v, err = ir.UnmarshalValue(data)
	case FormatYAML:
		v, err = ParseYAML(data)
	case FormatCUE:
		return LoadCUE(data, "")
	default:
		return nil, fmt.Errorf("unknown dataset format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return ir.DatasetFromValue(v)
}
