package risk

import (
	"strings"
	"sync/atomic"

	"github.com/noonaei/appsFlyer-hackathon/internal/aggregate"
)

type Evidence string

const (
	EvidenceStrong Evidence = "strong"
	EvidenceWeak   Evidence = "weak"
)

// Candidate is an alert produced by scoring, before text enrichment.
type Candidate struct {
	Item     string   `json:"item"`
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Platform string   `json:"platform"`
	Evidence Evidence `json:"-"`
}

// Key is the de-duplication key.
func (c Candidate) Key() string {
	return c.Category + "::" + c.Item
}

// Score evaluates topics then creators, in rank order, against every rule
// in table order. The result contains at most one candidate per
// (category, item) and only ever cites labels from the input.
func Score(rs *RuleSet, topics, creators []aggregate.Aggregate) []Candidate {
	items := make([]aggregate.Aggregate, 0, len(topics)+len(creators))
	items = append(items, topics...)
	items = append(items, creators...)

	out := make([]Candidate, 0)
	seen := make(map[string]struct{})
	for _, it := range items {
		text := NormalizeText(it.Label)
		if text == "" {
			continue
		}
		for _, rule := range rs.Rules {
			sev, ev, ok := match(rs, rule, text)
			if !ok {
				continue
			}
			c := Candidate{Item: it.Label, Category: rule.ID, Severity: sev, Platform: it.Platform, Evidence: ev}
			if _, dup := seen[c.Key()]; dup {
				continue
			}
			seen[c.Key()] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func match(rs *RuleSet, rule Rule, text string) (Severity, Evidence, bool) {
	for _, k := range rule.Strong {
		if strings.Contains(text, k) {
			return rule.Severity, EvidenceStrong, true
		}
	}
	hits := 0
	for _, k := range rule.Weak {
		if strings.Contains(text, k) {
			hits++
			if hits >= rs.WeakThreshold {
				return rs.downgrade(rule.Severity), EvidenceWeak, true
			}
		}
	}
	return "", "", false
}

// Scorer holds the active rule table and swaps it atomically on reload.
type Scorer struct {
	rules atomic.Pointer[RuleSet]
}

func NewScorer(rs *RuleSet) *Scorer {
	s := &Scorer{}
	s.rules.Store(rs)
	return s
}

func (s *Scorer) Rules() *RuleSet {
	return s.rules.Load()
}

// Score runs the active table. A reload during the call does not affect it.
func (s *Scorer) Score(topics, creators []aggregate.Aggregate) []Candidate {
	return Score(s.rules.Load(), topics, creators)
}

// Reload parses path and swaps the table in. On error the active table is kept.
func (s *Scorer) Reload(path string) (*RuleSet, error) {
	rs, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	s.rules.Store(rs)
	return rs, nil
}
