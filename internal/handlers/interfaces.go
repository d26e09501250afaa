package handlers

import (
	"context"

	"github.com/noonaei/appsFlyer-hackathon/internal/popular"
	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/internal/summary"
	"github.com/noonaei/appsFlyer-hackathon/pkg/cache"
)

type SummaryBuilder interface {
	Build(ctx context.Context, req summary.Request) (summary.Outcome, error)
}

type PopularContent interface {
	Get(ctx context.Context, age int) (popular.Content, error)
}

type RulesSource interface {
	Rules() *risk.RuleSet
}

// CacheStatsFunc reports the summary cache after purging expired entries.
type CacheStatsFunc func(ctx context.Context) (cache.Stats, error)
