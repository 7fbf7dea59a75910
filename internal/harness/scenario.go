package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonnymoo/shape/internal/querysql"
	"github.com/jonnymoo/shape/internal/shape"
	"github.com/jonnymoo/shape/internal/store"
)

// Scenario is one shape conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialect selects the SQL dialect for the sql/binds checks.
	// Empty means mssql.
	Dialect string `yaml:"dialect,omitempty"`

	// Shape is the shape document, kept as a node so field order survives.
	Shape yaml.Node `yaml:"shape"`

	// Input is a payload to match against the shape.
	Input any `yaml:"input,omitempty"`

	// Result is a raw database result to reshape.
	Result any `yaml:"result,omitempty"`

	// Fixtures seed a SQLite database the shape is fetched from.
	Fixtures []store.Fixture `yaml:"fixtures,omitempty"`

	// AnchorID is bound to the anchor when fetching from fixtures.
	AnchorID any `yaml:"anchor_id,omitempty"`

	Expect Expect `yaml:"expect"`

	doc shape.Document
}

// Expect lists the checks to run. Nil and empty fields are skipped.
type Expect struct {
	// OK is the expected match outcome for Input.
	OK *bool `yaml:"ok,omitempty"`

	// Missing lists expected report entries, in order. Empty fields of an
	// entry are not compared.
	Missing []MissingKey `yaml:"missing,omitempty"`

	// SQL is the expected compiled statement.
	SQL string `yaml:"sql,omitempty"`

	// Binds are the expected bind values, in placeholder order.
	Binds []any `yaml:"binds,omitempty"`

	// CompileError is a substring of the expected compile error.
	CompileError string `yaml:"compile_error,omitempty"`

	// Reshaped is the expected reshape of Result.
	Reshaped any `yaml:"reshaped,omitempty"`

	// Fetched is the expected document fetched from Fixtures.
	Fetched any `yaml:"fetched,omitempty"`
}

// MissingKey is an expected match report entry.
type MissingKey struct {
	Key    string `yaml:"key"`
	Reason string `yaml:"reason,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// Document returns the parsed shape. It is valid after LoadScenario or
// ParseScenario.
func (s *Scenario) Document() shape.Document {
	return s.doc
}

// LoadScenario loads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario. Unknown fields are
// rejected so typos surface as errors.
//
// Unquoted dates in payloads and fixtures keep their text, the way a JSON
// body or a database date column carries them.
func ParseScenario(data []byte) (*Scenario, error) {
	var strict Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&strict); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	store.KeepTimestampText(&root)

	var scenario Scenario
	if err := root.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml/.yml file in dir, sorted by path.
// filter is an optional glob matched against the file name without
// extension.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	files, err := FindScenarioFiles(dir, filter)
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// FindScenarioFiles lists scenario files directly inside dir.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

// validateScenario checks required fields and parses the shape.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Shape.Kind == 0 {
		return fmt.Errorf("shape is required")
	}

	if _, err := querysql.DialectByName(s.Dialect); err != nil {
		return fmt.Errorf("dialect: %w", err)
	}

	node, err := shape.FromYAMLNode(&s.Shape)
	if err != nil {
		return fmt.Errorf("shape: %w", err)
	}
	doc, err := shape.DocumentOf(node)
	if err != nil {
		return fmt.Errorf("shape: %w", err)
	}
	s.doc = doc

	e := s.Expect
	if e.OK == nil && len(e.Missing) == 0 && e.SQL == "" && e.Binds == nil &&
		e.CompileError == "" && e.Reshaped == nil && e.Fetched == nil {
		return fmt.Errorf("expect must check at least one thing")
	}
	if (e.OK != nil || len(e.Missing) > 0) && s.Input == nil {
		return fmt.Errorf("expect.ok and expect.missing need an input")
	}
	if e.Reshaped != nil && s.Result == nil {
		return fmt.Errorf("expect.reshaped needs a result")
	}
	if e.Fetched != nil && len(s.Fixtures) == 0 {
		return fmt.Errorf("expect.fetched needs fixtures")
	}
	for i, m := range e.Missing {
		if m.Key == "" {
			return fmt.Errorf("expect.missing[%d]: key is required", i)
		}
	}

	return nil
}
