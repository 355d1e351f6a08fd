package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/mtlprog/kindroute/internal/domain"
	"gopkg.in/yaml.v3"
)

const defaultScoringYAML = `# kindroute scoring configuration
badges:
  - name: Bronze
    min_points: 100
  - name: Silver
    min_points: 300
  - name: Gold
    min_points: 600
  - name: Platinum
    min_points: 1000

# Awards fired after a transition commits. beneficiary is either the
# candidate organization (assignee) or the task owner (requester).
rules:
  - kind: request
    on: accepted
    beneficiary: assignee
    activity: request_accepted
    points: 10
  - kind: request
    on: scheduled
    beneficiary: assignee
    activity: request_scheduled
    points: 15
  - kind: request
    on: completed
    beneficiary: assignee
    activity: request_completed
    points: 50
  - kind: request
    on: completed
    beneficiary: requester
    activity: request_fulfilled
    points: 10
  - kind: donation
    on: accepted
    beneficiary: assignee
    activity: donation_accepted
    points: 10
  - kind: donation
    on: scheduled
    beneficiary: requester
    activity: donation_scheduled
    points: 15
  - kind: donation
    on: completed
    beneficiary: requester
    activity: donation_completed
    points: 50
  - kind: donation
    on: completed
    beneficiary: assignee
    activity: donation_received
    points: 20
`

// Beneficiary selects who a scoring rule awards.
type Beneficiary string

const (
	BeneficiaryAssignee  Beneficiary = "assignee"
	BeneficiaryRequester Beneficiary = "requester"
)

// BadgeConfig declares one badge threshold.
type BadgeConfig struct {
	Name      string `yaml:"name"`
	MinPoints int64  `yaml:"min_points"`
}

// Rule declares the points awarded when an assignment of Kind reaches On.
type Rule struct {
	Kind        domain.TaskKind         `yaml:"kind"`
	On          domain.AssignmentStatus `yaml:"on"`
	Beneficiary Beneficiary             `yaml:"beneficiary"`
	Activity    string                  `yaml:"activity"`
	Points      int64                   `yaml:"points"`
}

// Scoring is the badge table and the transition award rules.
type Scoring struct {
	Badges []BadgeConfig `yaml:"badges"`
	Rules  []Rule        `yaml:"rules"`
}

// DefaultScoring returns the built-in scoring configuration.
func DefaultScoring() *Scoring {
	s, err := ParseScoring([]byte(defaultScoringYAML))
	if err != nil {
		panic(fmt.Sprintf("config: default scoring is invalid: %v", err))
	}
	return s
}

// LoadScoring reads a scoring file. An empty path yields the defaults.
func LoadScoring(path string) (*Scoring, error) {
	if path == "" {
		return DefaultScoring(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read scoring file: %w", err)
	}
	return ParseScoring(data)
}

// ParseScoring decodes and validates a YAML scoring document.
func ParseScoring(data []byte) (*Scoring, error) {
	var s Scoring
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parse scoring: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that thresholds ascend with unique names and that every
// rule references a known kind, transition and beneficiary.
func (s *Scoring) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(s.Badges))
	for i, b := range s.Badges {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("badge %d: name is required", i))
		}
		if seen[b.Name] {
			errs = append(errs, fmt.Errorf("badge %q: duplicate name", b.Name))
		}
		seen[b.Name] = true
		if i > 0 && b.MinPoints <= s.Badges[i-1].MinPoints {
			errs = append(errs, fmt.Errorf("badge %q: thresholds must be strictly ascending", b.Name))
		}
	}
	for i, r := range s.Rules {
		if !r.Kind.IsValid() {
			errs = append(errs, fmt.Errorf("rule %d: unknown task kind %q", i, r.Kind))
		}
		if !slices.Contains(ScoredTransitions, r.On) {
			errs = append(errs, fmt.Errorf("rule %d: transition %q is not scored", i, r.On))
		}
		if r.Beneficiary != BeneficiaryAssignee && r.Beneficiary != BeneficiaryRequester {
			errs = append(errs, fmt.Errorf("rule %d: unknown beneficiary %q", i, r.Beneficiary))
		}
		if r.Activity == "" {
			errs = append(errs, fmt.Errorf("rule %d: activity is required", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid scoring: %w", err)
	}
	return nil
}

// ScoredTransitions lists the assignment statuses that may carry awards.
var ScoredTransitions = []domain.AssignmentStatus{
	domain.AssignmentStatusAccepted,
	domain.AssignmentStatusScheduled,
	domain.AssignmentStatusCompleted,
}

// Thresholds converts the badge table to domain thresholds.
func (s *Scoring) Thresholds() []domain.BadgeThreshold {
	out := make([]domain.BadgeThreshold, 0, len(s.Badges))
	for _, b := range s.Badges {
		out = append(out, domain.BadgeThreshold{Name: b.Name, MinPoints: b.MinPoints})
	}
	return out
}

// RulesFor returns the rules matching a task kind and reached status, in
// declaration order.
func (s *Scoring) RulesFor(kind domain.TaskKind, on domain.AssignmentStatus) []Rule {
	var out []Rule
	for _, r := range s.Rules {
		if r.Kind == kind && r.On == on {
			out = append(out, r)
		}
	}
	return out
}
