package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crudkit/internal/resource"
)

// Scenario is a scripted sequence of resource operations with expected
// outcomes, run against a fresh in-memory store.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Resources are inline resource definitions to register.
	Resources []resource.Definition `yaml:"resources,omitempty"`

	// ResourcesFile names a definitions file (yaml, cue or json), relative
	// to the scenario file. Its definitions are registered after Resources.
	ResourcesFile string `yaml:"resources_file,omitempty"`

	// WithoutSample skips the built-in "test" resource.
	WithoutSample bool `yaml:"without_sample,omitempty"`

	// Keys are handed out in order to created string-keyed entities that
	// arrive without a key. Once exhausted, keys continue as key-N.
	Keys []string `yaml:"keys,omitempty"`

	// Steps run in order. A step without expect must succeed.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final table contents.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation on a resource.
type Step struct {
	// Op is create, get, update, delete, list or distinct.
	Op       string `yaml:"op"`
	Resource string `yaml:"resource"`

	// ID addresses get, update and delete.
	ID string `yaml:"id,omitempty"`

	// Body is the create or update payload. Omitted means no body.
	Body any `yaml:"body,omitempty"`

	// Query holds list parameters (page, pageSize, search, order, filters).
	Query map[string]string `yaml:"query,omitempty"`

	// Field is the distinct column.
	Field string `yaml:"field,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes a step's expected outcome.
type Expect struct {
	// Error is the expected error code (invalid_input, not_found, ...).
	// Empty expects success.
	Error string `yaml:"error,omitempty"`

	// Message is the expected error message, exact.
	Message string `yaml:"message,omitempty"`

	// Result is a subset match against the returned entity.
	Result map[string]any `yaml:"result,omitempty"`

	// Count is the expected total of a list.
	Count *int64 `yaml:"count,omitempty"`

	// Items are subset matches against the page items, in order. The page
	// must hold exactly len(Items) entities.
	Items []map[string]any `yaml:"items,omitempty"`

	// Values is the expected distinct result, in order.
	Values []string `yaml:"values,omitempty"`
}

// Operations.
const (
	OpCreate   = "create"
	OpGet      = "get"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpDistinct = "distinct"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type is trace_contains, trace_order, trace_count or final_state.
	Type string `yaml:"type"`

	// Op is "resource.op" (used by trace_contains and trace_count).
	Op string `yaml:"op,omitempty"`

	// Args are matched as a subset against the traced step arguments
	// (used by trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Ops is the expected order (used by trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Table, Where and Expect drive final_state: exactly one row of Table
	// must match Where, and its columns must match Expect as a subset.
	// Expect may be empty when Absent is set.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	// Absent inverts final_state: no row may match Where.
	Absent bool `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected. A relative ResourcesFile is resolved against the file's
// directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.ResourcesFile != "" && !filepath.IsAbs(scenario.ResourcesFile) {
		scenario.ResourcesFile = filepath.Join(filepath.Dir(path), scenario.ResourcesFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarioFiles returns the .yaml and .yml files under dir, sorted by
// path. A non-empty filter is a glob matched against the file name
// without extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
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
	if s.ResourcesFile != "" {
		if _, err := os.Stat(s.ResourcesFile); err != nil {
			return fmt.Errorf("resources file not found: %s", s.ResourcesFile)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	if step.Resource == "" {
		return fmt.Errorf("steps[%d]: resource is required", i)
	}
	switch step.Op {
	case OpCreate, OpList:
	case OpGet, OpUpdate, OpDelete:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", i, step.Op)
		}
	case OpDistinct:
		if step.Field == "" {
			return fmt.Errorf("steps[%d]: field is required for distinct", i)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}
	if step.Expect != nil && step.Expect.Message != "" && step.Expect.Error == "" {
		return fmt.Errorf("steps[%d].expect: message requires error", i)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if !a.Absent && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
