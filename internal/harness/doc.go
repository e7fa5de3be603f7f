// Package harness provides conformance testing for equery statements.
//
// The harness loads a dataset, runs query steps against it, and checks the
// results as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rows:                      # or dataset: path/to/rows.json
//	  - {name: Lucas, likes: 12}
//	  - {name: Amy, likes: 4}
//	collection: people         # optional: run steps against a stored copy
//	now: "2024-06-01T00:00:00Z"
//	options:
//	  max_rows: 1000
//	  workers: 4
//	  strict_projection: false
//	  clock_step: 24h
//	steps:
//	  - query: ".likes > 8 ~ orderby(.likes) desc"
//	    expect:
//	      rows:
//	        - {name: Lucas, likes: 12}
//	  - query: ".a .b:"
//	    expect:
//	      error: 11
//	assertions:
//	  - type: result_order
//	    step: 0
//	    path: .likes
//	    direction: desc
//
// # Assertion Types
//
//   - result_count: the step returned exactly N rows
//   - result_contains: some row of the step contains the given fields
//   - result_order: the step's rows are sorted by a path
//   - error_code: the step failed with the given code
//
// # Deterministic Testing
//
// The harness uses:
//   - Sequential execution IDs prefixed with the scenario name
//   - A step clock starting at "now" (testutil.StepClock)
//   - An in-memory SQLite database per scenario when a collection is named
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/scenario_a.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
