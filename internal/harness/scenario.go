package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/petitions/internal/petition"
)

// Scenario defines one reconciliation run and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Baseline is the petition's tier set before the edit. IDs are
	// assigned by the server (1, 2, 3 in order) and must not be set here.
	Baseline []petition.SupportTier `yaml:"baseline"`

	// Supporters pledges to baseline tiers before the edit.
	Supporters []SupporterSeed `yaml:"supporters,omitempty"`

	// Fail injects one-shot API failures.
	Fail []FailSeed `yaml:"fail,omitempty"`

	// Edited is the tier set to reconcile towards. Tiers without an ID are
	// new; tiers with one refer to a baseline tier.
	Edited []petition.SupportTier `yaml:"edited"`

	// Expect checks the final outcome.
	Expect Expect `yaml:"expect"`

	// Assertions check the report steps and requests.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SupporterSeed is a pledge recorded before reconciliation.
type SupporterSeed struct {
	Tier    int    `yaml:"tier"`
	Message string `yaml:"message,omitempty"`
}

// FailSeed makes the next matching request fail.
type FailSeed struct {
	Method  string `yaml:"method"`
	Path    string `yaml:"path"`
	Status  int    `yaml:"status"`
	Message string `yaml:"message"`
}

// Expect describes the final state after reconciliation.
type Expect struct {
	// Error is a substring of the returned error. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Tiers lists the titles left on the server, in server order.
	Tiers []string `yaml:"tiers"`

	// MinTiers and MaxTiers bound the tier count at every step.
	// Zero skips the check.
	MinTiers int `yaml:"min_tiers,omitempty"`
	MaxTiers int `yaml:"max_tiers,omitempty"`
}

// Assertion checks the report or the recorded requests.
type Assertion struct {
	// Type is one of step_contains, step_order, call_count.
	Type string `yaml:"type"`

	// Op, Title and Outcome select a step (step_contains).
	Op      string `yaml:"op,omitempty"`
	Title   string `yaml:"title,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// Steps lists applied steps as "op title" (step_order).
	Steps []string `yaml:"steps,omitempty"`

	// Call is "METHOD /path" and Count its expected occurrences (call_count).
	Call  string `yaml:"call,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStepContains = "step_contains"
	AssertStepOrder    = "step_order"
	AssertCallCount    = "call_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// An empty edited set is allowed: it exercises the reconciler's own guard.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Baseline) == 0 {
		return fmt.Errorf("baseline must have at least one tier")
	}
	if len(s.Baseline) > petition.MaxSupportTiers {
		return fmt.Errorf("baseline has %d tiers, at most %d allowed", len(s.Baseline), petition.MaxSupportTiers)
	}
	for i, t := range s.Baseline {
		if t.ID != 0 {
			return fmt.Errorf("baseline[%d]: id is assigned by the server", i)
		}
	}
	for i, sup := range s.Supporters {
		if sup.Tier < 1 || sup.Tier > len(s.Baseline) {
			return fmt.Errorf("supporters[%d]: tier %d is not a baseline tier", i, sup.Tier)
		}
	}
	for i, f := range s.Fail {
		if f.Method == "" || !strings.HasPrefix(f.Path, "/") || f.Status < 400 {
			return fmt.Errorf("fail[%d]: method, /path and an error status are required", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertStepContains:
		if a.Op == "" {
			return fmt.Errorf("%s requires op", a.Type)
		}
	case AssertStepOrder:
		if len(a.Steps) < 2 {
			return fmt.Errorf("%s requires at least two steps", a.Type)
		}
	case AssertCallCount:
		if a.Call == "" {
			return fmt.Errorf("%s requires call", a.Type)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
