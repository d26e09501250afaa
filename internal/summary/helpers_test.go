package summary

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noonaei/appsFlyer-hackathon/internal/aggregate"
	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/internal/signals"
	"github.com/noonaei/appsFlyer-hackathon/pkg/cache"
	"github.com/noonaei/appsFlyer-hackathon/pkg/llm"
)

type textStream struct {
	chunks []string
}

func (s *textStream) Recv() (llm.Chunk, error) {
	if len(s.chunks) == 0 {
		return llm.Chunk{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return llm.Chunk{Content: c}, nil
}

func (s *textStream) Close() error { return nil }

// stubProvider answers with a fixed text, fails with err, or blocks until
// the request context ends when block is set.
type stubProvider struct {
	text  string
	err   error
	block bool
	calls int32
	last  llm.Request
	mu    sync.Mutex
}

func (p *stubProvider) Complete(ctx context.Context, req llm.Request) (llm.Stream, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.last = req
	p.mu.Unlock()
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	// Split to exercise stream collection.
	mid := len(p.text) / 2
	return &textStream{chunks: []string{p.text[:mid], p.text[mid:]}}, nil
}

func (p *stubProvider) Calls() int { return int(atomic.LoadInt32(&p.calls)) }

// stepClock advances one second per reading.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type harness struct {
	pipeline  *Pipeline
	generator *Generator
	store     *cache.MemoryStore[Output]
	clock     *stepClock
}

func newHarness(ext External, locale string) *harness {
	return newHarnessWithStore(ext, locale, nil)
}

func newHarnessWithStore(ext External, locale string, store cache.Store[Output]) *harness {
	clock := newStepClock()
	mem := cache.NewMemoryStore[Output](cache.New(cache.Options{TTL: 10 * time.Minute, Now: clock.Now}, cache.MetricsHooks{}), Output.Clone)
	if store == nil {
		store = mem
	}
	gen := NewGenerator(GeneratorConfig{
		Store:     store,
		External:  ext,
		Templates: TemplatesFor(locale),
		TTL:       10 * time.Minute,
		Version:   "test",
		Now:       clock.Now,
	})
	p := NewPipeline(PipelineConfig{
		Aggregator: aggregate.New([]string{"reddit", "instagram", "tiktok"}),
		Scorer:     risk.NewScorer(risk.DefaultRules()),
		Generator:  gen,
		Now:        clock.Now,
	})
	return &harness{pipeline: p, generator: gen, store: mem, clock: clock}
}

func record(platform, kind, label string, count int) signals.Record {
	return signals.Record{"platform": platform, "kind": kind, "label": label, "occurrenceCount": float64(count)}
}

func request(records ...signals.Record) Request {
	return Request{History: records, AgeGroup: "12-14", Location: "Tel Aviv"}
}

func factsFor(req Request) Facts {
	agg := aggregate.New([]string{"reddit", "instagram", "tiktok"}).Aggregate(signals.Normalize(req.History))
	return NewFacts(req, agg, risk.Score(risk.DefaultRules(), agg.Topics, agg.Creators), DefaultTopN, "en")
}
