package summary

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/pkg/cache"
	"github.com/noonaei/appsFlyer-hackathon/pkg/clients"
)

// fakeExternal returns a templated "external" summary, optionally waiting
// for release first.
type fakeExternal struct {
	calls   int32
	release chan struct{}
	mutate  func(*Output)
}

func (e *fakeExternal) Generate(ctx context.Context, f Facts, _ string) (Output, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return Output{}, ctx.Err()
		}
	}
	out := Fallback(f, TemplatesFor("en"), time.Unix(1700000000, 0))
	out.ShortSummary = "external: " + out.ShortSummary
	if e.mutate != nil {
		e.mutate(&out)
	}
	return out, nil
}

func (e *fakeExternal) Calls() int { return int(atomic.LoadInt32(&e.calls)) }

func TestScenarioBenignActivityHasNoAlerts(t *testing.T) {
	h := newHarness(nil, "en")
	o, err := h.pipeline.Build(context.Background(), request(record("youtube", "hashtag", "Minecraft", 3)))
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, o.Source)
	assert.Equal(t, ReasonDisabled, o.Reason)
	assert.Empty(t, o.Output.Alerts)
	assert.NotNil(t, o.Output.Alerts)
	assert.Equal(t, "Summary: most activity centered on Minecraft.", o.Output.ShortSummary)
	require.Len(t, o.Output.TopTopics, 1)
	assert.Equal(t, TemplatesFor("en").Topics[0].Text, o.Output.TopTopics[0].Meaning)
	assert.Equal(t, []string{"youtube"}, o.Output.TopTopics[0].Platforms)
	assert.Equal(t, 3, *o.Output.TopTopics[0].Weight)
}

func TestScenarioStrongKeywordRaisesHighAlert(t *testing.T) {
	h := newHarness(nil, "en")
	o, err := h.pipeline.Build(context.Background(), request(record("youtube", "hashtag", "kys", 1)))
	require.NoError(t, err)

	require.Len(t, o.Output.Alerts, 1)
	a := o.Output.Alerts[0]
	assert.Equal(t, "kys", a.Item)
	assert.Equal(t, "self_harm", a.Category)
	assert.Equal(t, risk.SeverityHigh, a.Severity)
	assert.Equal(t, TemplatesFor("en").AlertByCategory["self_harm"], a.Explanation)
	assert.Equal(t, TemplatesFor("en").Actions[risk.SeverityHigh], a.SuggestedAction)
}

func TestScenarioExternalTimeoutFallsBack(t *testing.T) {
	p := &stubProvider{block: true}
	h := newHarness(newLLM(p, nil, 20*time.Millisecond), "he")

	o, err := h.pipeline.Build(context.Background(), request(
		record("youtube", "hashtag", "Minecraft", 3),
		record("youtube", "hashtag", "kys", 1),
	))
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, o.Source)
	assert.Equal(t, ReasonTimeout, o.Reason)
	assert.Equal(t, "סיכום: עיקר הפעילות סביב Minecraft.", o.Output.ShortSummary)
	require.Len(t, o.Output.Alerts, 1)
	assert.Equal(t, "ייתכן שזה קשור למצוקה או פגיעה עצמית. חשוב לבדוק הקשר ולא להסיק מסקנות רק מהמונח.", o.Output.Alerts[0].Explanation)
	assert.Equal(t, 1, p.Calls())
}

func TestScenarioRepeatWithinTTLIsIdenticalExceptTimestamp(t *testing.T) {
	ext := &fakeExternal{}
	h := newHarness(ext, "en")
	req := request(record("youtube", "hashtag", "Minecraft", 3), record("youtube", "creator", "DreamSMP", 2))

	first, err := h.pipeline.Build(context.Background(), req)
	require.NoError(t, err)
	second, err := h.pipeline.Build(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, SourceExternal, first.Source)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, 1, ext.Calls())
	assert.Greater(t, second.Output.Meta.GeneratedAt, first.Output.Meta.GeneratedAt)

	a, b := first.Output, second.Output
	a.Meta.GeneratedAt, b.Meta.GeneratedAt = 0, 0
	assert.Equal(t, a, b)
}

func TestCacheHitIsIsolatedFromCallerMutation(t *testing.T) {
	h := newHarness(nil, "en")
	req := request(record("youtube", "hashtag", "Minecraft", 3))

	first, err := h.pipeline.Build(context.Background(), req)
	require.NoError(t, err)
	first.Output.TopTopics[0].Platforms[0] = "mutated"
	first.Output.ShortSummary = "mutated"

	second, err := h.pipeline.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, "youtube", second.Output.TopTopics[0].Platforms[0])
	assert.NotEqual(t, "mutated", second.Output.ShortSummary)
}

func TestHallucinatedEntityFallsBack(t *testing.T) {
	resp := validResponse()
	resp["topTopics"] = []interface{}{map[string]interface{}{"topic": "Fortnite", "meaning": "Battle royale.", "platforms": []string{"youtube"}}}
	p := &stubProvider{text: encode(t, resp)}
	h := newHarness(newLLM(p, nil, time.Second), "en")

	req := request(
		record("youtube", "hashtag", "Minecraft", 5),
		record("youtube", "creator", "DreamSMP", 4),
		record("youtube", "hashtag", "kys", 1),
	)
	o, err := h.pipeline.Build(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, o.Source)
	assert.Equal(t, ReasonHallucination, o.Reason)
	for _, topic := range o.Output.TopTopics {
		assert.NotEqual(t, "Fortnite", topic.Topic)
	}
}

func TestValidExternalResponseIsUsed(t *testing.T) {
	p := &stubProvider{text: encode(t, validResponse())}
	h := newHarness(newLLM(p, nil, time.Second), "en")
	o, err := h.pipeline.Build(context.Background(), request(
		record("youtube", "hashtag", "Minecraft", 5),
		record("tiktok", "hashtag", "minecraft", 2),
		record("youtube", "creator", "DreamSMP", 4),
		record("youtube", "hashtag", "kys", 1),
	))
	require.NoError(t, err)
	assert.Equal(t, SourceExternal, o.Source)
	assert.Equal(t, "Mostly Minecraft.", o.Output.ShortSummary)
	assert.Equal(t, "Tel Aviv", o.Output.Meta.Location)
}

func TestOutputGateRebuildsFromTemplates(t *testing.T) {
	ext := &fakeExternal{mutate: func(o *Output) { o.ShortSummary = "  " }}
	h := newHarness(ext, "en")

	o, err := h.pipeline.Build(context.Background(), request(record("youtube", "hashtag", "Minecraft", 3)))
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, o.Source)
	assert.Equal(t, ReasonInvalid, o.Reason)
	assert.Equal(t, "Summary: most activity centered on Minecraft.", o.Output.ShortSummary)
}

func TestEmptyFactsStillProduceValidSummary(t *testing.T) {
	h := newHarness(nil, "en")
	o, err := h.pipeline.Build(context.Background(), request(record("youtube", "hashtag", "unknown", 3)))
	require.NoError(t, err)
	assert.Equal(t, "Summary: most activity centered on general content.", o.Output.ShortSummary)
	assert.NoError(t, ValidateOutput(o.Output))
}

func TestBreakerOpenFallsBack(t *testing.T) {
	cb := clients.NewCircuitBreaker(clients.CircuitBreakerConfig{Name: "llm", MinRequests: 1, FailureRatio: 1, Timeout: time.Minute})
	_ = cb.Call(context.Background(), func(context.Context) error { return assert.AnError })
	require.True(t, cb.IsOpen())

	p := &stubProvider{text: encode(t, validResponse())}
	h := newHarness(newLLM(p, cb, time.Second), "en")

	o, err := h.pipeline.Build(context.Background(), request(record("youtube", "hashtag", "Minecraft", 3)))
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, o.Source)
	assert.Equal(t, ReasonBreakerOpen, o.Reason)
	assert.Equal(t, 0, p.Calls())
}

func TestTransportErrorFallsBack(t *testing.T) {
	p := &stubProvider{err: assert.AnError}
	h := newHarness(newLLM(p, nil, time.Second), "en")

	o, err := h.pipeline.Build(context.Background(), request(record("youtube", "hashtag", "Minecraft", 3)))
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, o.Source)
	assert.Equal(t, ReasonError, o.Reason)
}

func TestRedisFaultDegradesToMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewRedisJSONStore[Output](cache.NewRedisStore(client, "lookout:test:"), time.Minute)
	mr.Close()

	h := newHarnessWithStore(nil, "en", store)
	o, err := h.pipeline.Build(context.Background(), request(record("youtube", "hashtag", "Minecraft", 3)))
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, o.Source)
	assert.Equal(t, "Summary: most activity centered on Minecraft.", o.Output.ShortSummary)
}

func TestRedisStoreSharesResults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewRedisJSONStore[Output](cache.NewRedisStore(client, "lookout:test:"), time.Minute)

	req := request(record("youtube", "hashtag", "Minecraft", 3))
	first, err := newHarnessWithStore(nil, "en", store).pipeline.Build(context.Background(), req)
	require.NoError(t, err)

	// A second process with its own generator sees the stored result.
	second, err := newHarnessWithStore(nil, "en", store).pipeline.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, first.Source)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Output.TopTopics, second.Output.TopTopics)
}

func TestConcurrentIdenticalMissesCoalesce(t *testing.T) {
	ext := &fakeExternal{release: make(chan struct{})}
	h := newHarness(ext, "en")
	req := request(record("youtube", "hashtag", "Minecraft", 3))

	const workers = 8
	var wg sync.WaitGroup
	results := make([]Outcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := h.pipeline.Build(context.Background(), req)
			assert.NoError(t, err)
			results[i] = o
		}(i)
	}

	require.Eventually(t, func() bool { return ext.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(ext.release)
	wg.Wait()

	assert.Equal(t, 1, ext.Calls())
	for _, o := range results {
		assert.Equal(t, "external: Summary: most activity centered on Minecraft.", o.Output.ShortSummary)
	}
}

func TestCallerCancelReturnsUncachedFallback(t *testing.T) {
	ext := &fakeExternal{release: make(chan struct{})}
	h := newHarness(ext, "en")
	req := request(record("youtube", "hashtag", "Minecraft", 3))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		o, err := h.pipeline.Build(ctx, req)
		assert.NoError(t, err)
		done <- o
	}()
	require.Eventually(t, func() bool { return ext.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()

	o := <-done
	assert.Equal(t, SourceFallback, o.Source)
	assert.Equal(t, ReasonCanceled, o.Reason)

	// The shared build was detached from the caller and still completes.
	close(ext.release)
	require.Eventually(t, func() bool {
		n, _ := h.store.Len(context.Background())
		return n == 1
	}, time.Second, time.Millisecond)

	again, err := h.pipeline.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, again.Source)
	assert.Equal(t, "external: Summary: most activity centered on Minecraft.", again.Output.ShortSummary)
}

func TestNotifyFiresOnFreshBuildsOnly(t *testing.T) {
	var fired int32
	clock := newStepClock()
	gen := NewGenerator(GeneratorConfig{
		Store: cache.NewMemoryStore[Output](cache.New(cache.Options{TTL: time.Minute, Now: clock.Now}, cache.MetricsHooks{}), Output.Clone),
		Now:   clock.Now,
		Notify: func(_ context.Context, f Facts, o Outcome) {
			atomic.AddInt32(&fired, 1)
			assert.Len(t, o.Output.Alerts, len(f.Alerts))
		},
	})
	f := factsFor(request(record("youtube", "hashtag", "kys", 1)))

	_, err := gen.Generate(context.Background(), f, "")
	require.NoError(t, err)
	o, err := gen.Generate(context.Background(), f, "")
	require.NoError(t, err)

	assert.Equal(t, SourceCache, o.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestCustomPromptIsPartOfCacheKey(t *testing.T) {
	f := factsFor(request(record("youtube", "hashtag", "Minecraft", 3)))
	a, err := CacheKey("v1", f, "")
	require.NoError(t, err)
	b, err := CacheKey("v1", f, "be brief")
	require.NoError(t, err)
	c, err := CacheKey("v2", f, "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}
