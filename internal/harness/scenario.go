package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario runs a list of query steps against a dataset and asserts on
// the results.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file
	// and prefixes execution IDs.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dataset is a path to a JSON, YAML or CUE dataset file.
	// Relative paths are resolved against the scenario file's directory.
	Dataset string `yaml:"dataset,omitempty"`

	// Rows is an inline dataset. Mutually exclusive with Dataset.
	Rows yaml.Node `yaml:"rows,omitempty"`

	// Collection, when set, imports the scenario dataset into an in-memory
	// store under this name and runs steps against the stored collection.
	Collection string `yaml:"collection,omitempty"`

	// Now is the RFC 3339 instant date functions see on the first query.
	// Defaults to testutil.DefaultEpoch.
	Now string `yaml:"now,omitempty"`

	// Options tune the engine.
	Options Options `yaml:"options,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate step results after all steps ran.
	// Supported types: result_count, result_contains, result_order, error_code
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Options configure the engine a scenario runs on.
type Options struct {
	MaxRows          int    `yaml:"max_rows,omitempty"`
	Workers          int    `yaml:"workers,omitempty"`
	StrictProjection bool   `yaml:"strict_projection,omitempty"`
	ClockStep        string `yaml:"clock_step,omitempty"`
}

// Step is a single query.
type Step struct {
	// Query is the statement to run.
	Query string `yaml:"query"`

	// Dataset overrides the scenario dataset for this step only.
	Dataset string `yaml:"dataset,omitempty"`

	// Rows overrides the scenario dataset with inline rows for this step only.
	// A step with its own dataset never runs against the collection.
	Rows yaml.Node `yaml:"rows,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step only contributes to the trace.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Rows is the exact expected result, in order.
	Rows yaml.Node `yaml:"rows,omitempty"`

	// Count is the expected number of result rows.
	Count *int `yaml:"count,omitempty"`

	// Error is the expected error code. A step with an expected error must
	// fail with exactly that code.
	Error *int `yaml:"error,omitempty"`
}

// Assertion validates the result of one step.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result_count": step returned exactly Count rows
	// - "result_contains": some row of the step contains every field of Row
	// - "result_order": rows of the step are sorted by Path in Direction
	// - "error_code": step failed with Code
	Type string `yaml:"type"`

	// Step is the 0-based step index the assertion inspects.
	Step int `yaml:"step"`

	// Count is the expected number of rows (used by result_count).
	Count int `yaml:"count,omitempty"`

	// Row is the expected row subset (used by result_contains).
	Row yaml.Node `yaml:"row,omitempty"`

	// Path is a dotted property path such as ".user.city" (used by result_order).
	Path string `yaml:"path,omitempty"`

	// Direction is "asc" or "desc" (used by result_order, default asc).
	Direction string `yaml:"direction,omitempty"`

	// Code is the expected error code (used by error_code).
	Code *int `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertResultCount    = "result_count"
	AssertResultContains = "result_contains"
	AssertResultOrder    = "result_order"
	AssertErrorCode      = "error_code"
)

// LoadScenario reads and parses a scenario YAML file.
// Dataset paths are resolved against the directory containing the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving dataset paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. Relative dataset paths are joined to
// basePath when basePath is not empty.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve dataset paths relative to base path BEFORE validation
	scenario.Dataset = resolvePath(scenario.Dataset, basePath)
	for i := range scenario.Steps {
		scenario.Steps[i].Dataset = resolvePath(scenario.Steps[i].Dataset, basePath)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolvePath(path, basePath string) string {
	if path == "" || path == "-" || filepath.IsAbs(path) || basePath == "" {
		return path
	}
	return filepath.Join(basePath, path)
}

func present(n *yaml.Node) bool {
	return n != nil && n.Kind != 0
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Dataset != "" && present(&s.Rows) {
		return fmt.Errorf("dataset and rows are mutually exclusive")
	}
	if err := checkDatasetPath(s.Dataset); err != nil {
		return err
	}
	hasBase := s.Dataset != "" || present(&s.Rows)

	if s.Collection != "" && !hasBase {
		return fmt.Errorf("collection %q requires a scenario dataset", s.Collection)
	}

	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}
	if s.Options.ClockStep != "" {
		if _, err := time.ParseDuration(s.Options.ClockStep); err != nil {
			return fmt.Errorf("options.clock_step: %w", err)
		}
	}
	if s.Options.MaxRows < 0 {
		return fmt.Errorf("options.max_rows must be non-negative")
	}
	if s.Options.Workers < 0 {
		return fmt.Errorf("options.workers must be non-negative")
	}

	for i, step := range s.Steps {
		if step.Query == "" {
			return fmt.Errorf("steps[%d]: query is required", i)
		}
		if step.Dataset != "" && present(&step.Rows) {
			return fmt.Errorf("steps[%d]: dataset and rows are mutually exclusive", i)
		}
		if err := checkDatasetPath(step.Dataset); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if !hasBase && step.Dataset == "" && !present(&step.Rows) {
			return fmt.Errorf("steps[%d]: no dataset (set dataset or rows on the scenario or the step)", i)
		}
		if err := validateExpect(i, step.Expect); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

func checkDatasetPath(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("dataset file not found: %s", path)
	}
	return nil
}

func validateExpect(index int, e *ExpectClause) error {
	if e == nil {
		return nil
	}
	hasRows := present(&e.Rows)
	if e.Error != nil && (hasRows || e.Count != nil) {
		return fmt.Errorf("steps[%d].expect: error excludes rows and count", index)
	}
	if e.Error == nil && !hasRows && e.Count == nil {
		return fmt.Errorf("steps[%d].expect: one of rows, count or error is required", index)
	}
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("steps[%d].expect: count must be non-negative", index)
	}
	if hasRows && e.Rows.Kind != yaml.SequenceNode {
		return fmt.Errorf("steps[%d].expect: rows must be a list", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step < 0 || a.Step >= steps {
		return fmt.Errorf("assertions[%d]: step %d out of range (0..%d)", index, a.Step, steps-1)
	}

	switch a.Type {
	case AssertResultCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for result_count", index)
		}
	case AssertResultContains:
		if a.Row.Kind != yaml.MappingNode {
			return fmt.Errorf("assertions[%d]: row mapping is required for result_contains", index)
		}
	case AssertResultOrder:
		if a.Path == "" || a.Path[0] != '.' {
			return fmt.Errorf("assertions[%d]: path like .field is required for result_order", index)
		}
		switch a.Direction {
		case "", "asc", "desc":
		default:
			return fmt.Errorf("assertions[%d]: direction must be asc or desc, got %q", index, a.Direction)
		}
	case AssertErrorCode:
		if a.Code == nil {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
