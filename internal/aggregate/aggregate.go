// Package aggregate rolls normalized signals up into ranked topic and
// creator collections.
package aggregate

import (
	"sort"
	"strings"

	"github.com/noonaei/appsFlyer-hackathon/internal/signals"
)

// Aggregate is the rollup of every signal sharing a (platform, label) key
// within one partition.
type Aggregate struct {
	Label       string       `json:"label"`
	Platform    string       `json:"platform"`
	TotalWeight int          `json:"totalWeight"`
	Kind        signals.Kind `json:"kind"`
}

// Key identifies an aggregate within its partition.
func (a Aggregate) Key() string {
	return Key(a.Platform, a.Label)
}

func Key(platform, label string) string {
	return platform + "::" + label
}

// Result holds both partitions, each ranked by TotalWeight descending.
type Result struct {
	Topics   []Aggregate
	Creators []Aggregate
}

// Aggregator groups signals. Creator signals on a reclassifying platform
// are counted as topics, since scraped creator names there are unreliable.
type Aggregator struct {
	creatorAsTopic map[string]struct{}
}

func New(creatorAsTopicPlatforms []string) *Aggregator {
	set := make(map[string]struct{}, len(creatorAsTopicPlatforms))
	for _, p := range creatorAsTopicPlatforms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			set[p] = struct{}{}
		}
	}
	return &Aggregator{creatorAsTopic: set}
}

// ReclassifiesCreators reports whether creator signals on platform become topics.
func (a *Aggregator) ReclassifiesCreators(platform string) bool {
	_, ok := a.creatorAsTopic[strings.ToLower(platform)]
	return ok
}

// Aggregate is deterministic: identical input in identical order yields
// identical output, with ties kept in first-seen order.
func (a *Aggregator) Aggregate(sigs []signals.Signal) Result {
	topics := newPartition()
	creators := newPartition()

	for _, s := range sigs {
		if s.Kind == signals.KindCreator {
			if a.ReclassifiesCreators(s.Platform) {
				topics.add(s, signals.KindTopic)
				continue
			}
			creators.add(s, signals.KindCreator)
			continue
		}
		topics.add(s, s.Kind)
	}

	return Result{Topics: topics.ranked(), Creators: creators.ranked()}
}

type partition struct {
	index map[string]int
	items []Aggregate
}

func newPartition() *partition {
	return &partition{index: make(map[string]int)}
}

func (p *partition) add(s signals.Signal, kind signals.Kind) {
	key := Key(s.Platform, s.Label)
	if i, ok := p.index[key]; ok {
		p.items[i].TotalWeight += s.Weight
		return
	}
	p.index[key] = len(p.items)
	p.items = append(p.items, Aggregate{
		Label:       s.Label,
		Platform:    s.Platform,
		TotalWeight: s.Weight,
		Kind:        kind,
	})
}

func (p *partition) ranked() []Aggregate {
	out := make([]Aggregate, len(p.items))
	copy(out, p.items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalWeight > out[j].TotalWeight
	})
	return out
}
