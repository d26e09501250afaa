// Package summary builds parent-facing activity summaries: request parsing,
// facts assembly, generative enrichment with a deterministic fallback, and
// the output contract gate.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/noonaei/appsFlyer-hackathon/internal/aggregate"
	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/internal/signals"
	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
)

type PipelineConfig struct {
	Aggregator *aggregate.Aggregator
	Scorer     *risk.Scorer
	Generator  *Generator
	TopN       int
	Locale     string
	Now        func() time.Time
	Logger     logging.Logger
}

// Pipeline runs normalize, aggregate, score and generate for one request.
type Pipeline struct {
	aggregator *aggregate.Aggregator
	scorer     *risk.Scorer
	generator  *Generator
	topN       int
	locale     string
	now        func() time.Time
	logger     logging.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.Locale == "" {
		cfg.Locale = cfg.Generator.Templates().Locale
	}
	return &Pipeline{
		aggregator: cfg.Aggregator,
		scorer:     cfg.Scorer,
		generator:  cfg.Generator,
		topN:       cfg.TopN,
		locale:     cfg.Locale,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}
}

// Build returns a summary that has passed the output contract. The result is
// the caller's own copy, with meta set from req and the current time.
func (p *Pipeline) Build(ctx context.Context, req Request) (Outcome, error) {
	sigs := signals.Normalize(req.History)
	agg := p.aggregator.Aggregate(sigs)
	candidates := p.scorer.Score(agg.Topics, agg.Creators)
	facts := NewFacts(req, agg, candidates, p.topN, p.locale)

	o, err := p.generator.Generate(ctx, facts, req.CustomPrompt)
	if err != nil {
		return Outcome{}, err
	}
	o.Output = o.Output.Clone()
	o.Output.Meta = p.meta(req)

	if err := ValidateOutput(o.Output); err != nil {
		p.logger.WithError(err).WithField("source", o.Source).Error("Summary failed output contract; rebuilding from templates")
		fb := Fallback(facts, p.generator.Templates(), p.now())
		fb.Meta = p.meta(req)
		if err := ValidateOutput(fb); err != nil {
			return Outcome{}, fmt.Errorf("summary: fallback rejected: %w", err)
		}
		return Outcome{Output: fb, Source: SourceFallback, Reason: ReasonInvalid}, nil
	}

	p.logger.WithFields(logging.Fields{
		"records":  len(req.History),
		"signals":  len(sigs),
		"topics":   len(agg.Topics),
		"creators": len(agg.Creators),
		"alerts":   len(o.Output.Alerts),
		"source":   o.Source,
	}).Debug("Summary pipeline finished")
	return o, nil
}

func (p *Pipeline) meta(req Request) Meta {
	return Meta{
		GeneratedAt: p.now().UnixMilli(),
		AgeGroup:    orUnknown(req.AgeGroup),
		Location:    orUnknown(req.Location),
	}
}

// Rules exposes the active risk table.
func (p *Pipeline) Rules() *risk.RuleSet {
	return p.scorer.Rules()
}

func orUnknown(s string) string {
	if s == "" {
		return signals.Unknown
	}
	return s
}
