package summary

import (
	"github.com/noonaei/appsFlyer-hackathon/internal/aggregate"
	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/pkg/cache"
)

// DefaultTopN bounds how many aggregates of each partition reach the generator.
const DefaultTopN = 8

// Facts is everything the generator may use. It is also the cache identity
// of a summary, so two requests with equal facts share one result.
type Facts struct {
	AgeGroup    string                `json:"ageGroup"`
	Location    string                `json:"location"`
	Locale      string                `json:"locale"`
	TopTopics   []aggregate.Aggregate `json:"topTopics"`
	TopCreators []aggregate.Aggregate `json:"topCreators"`
	Alerts      []risk.Candidate      `json:"alerts"`
}

// NewFacts keeps the first topN aggregates of each partition, in rank order.
func NewFacts(req Request, agg aggregate.Result, alerts []risk.Candidate, topN int, locale string) Facts {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if alerts == nil {
		alerts = []risk.Candidate{}
	}
	return Facts{
		AgeGroup:    req.AgeGroup,
		Location:    req.Location,
		Locale:      locale,
		TopTopics:   head(agg.Topics, topN),
		TopCreators: head(agg.Creators, topN),
		Alerts:      alerts,
	}
}

func head(in []aggregate.Aggregate, n int) []aggregate.Aggregate {
	if len(in) < n {
		n = len(in)
	}
	out := make([]aggregate.Aggregate, n)
	copy(out, in[:n])
	return out
}

type keyInput struct {
	Facts        Facts  `json:"facts"`
	Schema       string `json:"schema"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// CacheKey derives the content address of a summary.
func CacheKey(version string, f Facts, customPrompt string) (string, error) {
	return cache.HashKey(version, keyInput{Facts: f, Schema: SchemaTag, CustomPrompt: customPrompt})
}
