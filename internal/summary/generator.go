package summary

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/noonaei/appsFlyer-hackathon/pkg/cache"
	"github.com/noonaei/appsFlyer-hackathon/pkg/clients"
	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
)

type Source string

const (
	SourceExternal Source = "external"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

// Reason explains a fallback. It is empty for external and cache results.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonDisabled      Reason = "disabled"
	ReasonBreakerOpen   Reason = "breaker_open"
	ReasonTimeout       Reason = "timeout"
	ReasonCanceled      Reason = "canceled"
	ReasonError         Reason = "error"
	ReasonInvalid       Reason = "invalid"
	ReasonHallucination Reason = "hallucination"
)

// Outcome is the result of one generation.
type Outcome struct {
	Output Output
	Source Source
	Reason Reason
}

// NotifyFunc observes freshly built summaries, never cache hits.
type NotifyFunc func(ctx context.Context, f Facts, o Outcome)

type GeneratorConfig struct {
	Store cache.Store[Output]
	// StoreName labels cache metrics (memory|redis).
	StoreName string
	// External is optional; without it every miss is a fallback.
	External  External
	Templates *Templates
	TTL       time.Duration
	Version   string
	Now       func() time.Time
	Logger    logging.Logger
	Metrics   *Metrics
	Notify    NotifyFunc
}

// Generator turns facts into an Outcome: cache, then one external attempt,
// then the deterministic fallback. Concurrent misses for the same key share
// one build.
type Generator struct {
	store     cache.Store[Output]
	storeName string
	external  External
	templates *Templates
	ttl       time.Duration
	version   string
	now       func() time.Time
	logger    logging.Logger
	metrics   *Metrics
	notify    NotifyFunc
	flights   singleflight.Group
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.Templates == nil {
		cfg.Templates = TemplatesFor("en")
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "memory"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Version == "" {
		cfg.Version = "v1"
	}
	return &Generator{
		store:     cfg.Store,
		storeName: cfg.StoreName,
		external:  cfg.External,
		templates: cfg.Templates,
		ttl:       cfg.TTL,
		version:   cfg.Version,
		now:       cfg.Now,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		notify:    cfg.Notify,
	}
}

// Templates returns the locale table used for fallbacks.
func (g *Generator) Templates() *Templates {
	return g.templates
}

// Generate never fails on external or cache faults; those become a fallback
// or a miss. If ctx ends first the caller gets an uncached fallback while the
// shared build keeps running for the other waiters.
func (g *Generator) Generate(ctx context.Context, f Facts, customPrompt string) (Outcome, error) {
	key, err := CacheKey(g.version, f, customPrompt)
	if err != nil {
		return Outcome{}, err
	}

	if out, ok := g.lookup(ctx, key); ok {
		g.metrics.IncBuild("summary", SourceCache, ReasonNone)
		return Outcome{Output: out, Source: SourceCache}, nil
	}

	ch := g.flights.DoChan(key, func() (interface{}, error) {
		return g.build(context.WithoutCancel(ctx), key, f, customPrompt), nil
	})

	select {
	case res := <-ch:
		o := res.Val.(Outcome)
		if res.Shared {
			o.Output = o.Output.Clone()
		}
		return o, nil
	case <-ctx.Done():
		g.logger.WithField("key", key).Warn("Caller gave up waiting for summary; returning fallback")
		g.metrics.IncBuild("summary", SourceFallback, ReasonCanceled)
		return Outcome{Output: Fallback(f, g.templates, g.now()), Source: SourceFallback, Reason: ReasonCanceled}, nil
	}
}

func (g *Generator) build(ctx context.Context, key string, f Facts, customPrompt string) Outcome {
	// Another flight may have stored the value while this one was queued.
	if out, ok := g.lookup(ctx, key); ok {
		g.metrics.IncBuild("summary", SourceCache, ReasonNone)
		return Outcome{Output: out, Source: SourceCache}
	}

	log := g.logger.WithFields(logging.Fields{"key": key, "topics": len(f.TopTopics), "alerts": len(f.Alerts)})
	o := Outcome{Source: SourceFallback, Reason: ReasonDisabled}
	if g.external != nil {
		out, err := g.external.Generate(ctx, f, customPrompt)
		if err == nil {
			o = Outcome{Output: out, Source: SourceExternal}
		} else {
			o.Reason = classify(err)
			log.WithError(err).WithField("reason", o.Reason).Warn("Generative summary unusable; using fallback")
		}
	}
	if o.Source == SourceFallback {
		o.Output = Fallback(f, g.templates, g.now())
	}

	if g.store != nil {
		if err := g.store.Set(ctx, key, o.Output, g.ttl); err != nil {
			log.WithError(err).Warn("Failed to store summary in cache")
		}
	}
	g.metrics.IncBuild("summary", o.Source, o.Reason)
	g.metrics.IncAlerts(o.Output.Alerts)
	log.WithFields(logging.Fields{"source": o.Source, "reason": o.Reason}).Info("Summary built")

	if g.notify != nil {
		g.notify(ctx, f, o)
	}
	return o
}

func (g *Generator) lookup(ctx context.Context, key string) (Output, bool) {
	if g.store == nil {
		return Output{}, false
	}
	out, ok, err := g.store.Get(ctx, key)
	switch {
	case err != nil:
		g.metrics.IncCacheLookup(g.storeName, "error")
		g.logger.WithError(err).WithField("store", g.storeName).Warn("Cache lookup failed; treating as miss")
		return Output{}, false
	case ok:
		g.metrics.IncCacheLookup(g.storeName, "hit")
		return out, true
	default:
		g.metrics.IncCacheLookup(g.storeName, "miss")
		return Output{}, false
	}
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, ErrUngrounded):
		return ReasonHallucination
	case errors.Is(err, ErrContract):
		return ReasonInvalid
	case errors.Is(err, clients.ErrOpen):
		return ReasonBreakerOpen
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonError
	}
}
