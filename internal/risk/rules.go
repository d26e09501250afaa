// Package risk classifies aggregate labels against a keyword rule table.
package risk

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities; unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

func (s Severity) Valid() bool { return s.Rank() > 0 }

// ParseSeverity accepts low, medium or high in any case.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("risk: unknown severity %q", v)
	}
	return s, nil
}

// Rule is one category. Keywords are stored normalized and de-duplicated.
type Rule struct {
	ID       string   `yaml:"id" json:"id"`
	Severity Severity `yaml:"severity" json:"severity"`
	Strong   []string `yaml:"strong" json:"strongKeywords"`
	Weak     []string `yaml:"weak" json:"weakKeywords"`
}

// RuleSet is an immutable, validated rule table. Replace it wholesale;
// never modify one that has been handed to a Scorer.
type RuleSet struct {
	Version       string                `yaml:"version" json:"version"`
	WeakThreshold int                   `yaml:"weakThreshold" json:"weakThreshold"`
	Downgrade     map[Severity]Severity `yaml:"downgrade" json:"downgrade"`
	Rules         []Rule                `yaml:"rules" json:"rules"`
}

var ErrInvalidRules = errors.New("risk: invalid rule table")

const defaultWeakThreshold = 2

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if err := rs.normalize(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadRules reads a rule table from path; an empty path selects the
// embedded default table.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return ParseRules(defaultRulesYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("risk: read rules: %w", err)
	}
	return ParseRules(data)
}

// DefaultRules returns the embedded table.
func DefaultRules() *RuleSet {
	rs, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return rs
}

// Categories lists rule ids in table order.
func (rs *RuleSet) Categories() []string {
	out := make([]string, len(rs.Rules))
	for i, r := range rs.Rules {
		out[i] = r.ID
	}
	return out
}

func (rs *RuleSet) normalize() error {
	if rs.WeakThreshold == 0 {
		rs.WeakThreshold = defaultWeakThreshold
	}
	if rs.WeakThreshold < 1 {
		return fmt.Errorf("%w: weakThreshold must be >= 1, got %d", ErrInvalidRules, rs.WeakThreshold)
	}
	if rs.Downgrade == nil {
		rs.Downgrade = map[Severity]Severity{SeverityHigh: SeverityMedium}
	}
	for from, to := range rs.Downgrade {
		if !from.Valid() || !to.Valid() {
			return fmt.Errorf("%w: downgrade %q -> %q", ErrInvalidRules, from, to)
		}
	}
	if len(rs.Rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidRules)
	}

	seen := make(map[string]struct{}, len(rs.Rules))
	for i := range rs.Rules {
		r := &rs.Rules[i]
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			return fmt.Errorf("%w: rule %d has no id", ErrInvalidRules, i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRules, r.ID)
		}
		seen[r.ID] = struct{}{}

		sev, err := ParseSeverity(string(r.Severity))
		if err != nil {
			return fmt.Errorf("%w: rule %q: %v", ErrInvalidRules, r.ID, err)
		}
		r.Severity = sev
		r.Strong = normalizeKeywords(r.Strong)
		r.Weak = normalizeKeywords(r.Weak)
		if len(r.Strong) == 0 && len(r.Weak) == 0 {
			return fmt.Errorf("%w: rule %q has no keywords", ErrInvalidRules, r.ID)
		}
	}
	return nil
}

func (rs *RuleSet) downgrade(s Severity) Severity {
	if to, ok := rs.Downgrade[s]; ok {
		return to
	}
	return s
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = NormalizeText(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// NormalizeText case-folds, collapses runs of whitespace and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}
