package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/pkg/clients"
	"github.com/noonaei/appsFlyer-hackathon/pkg/llm"
	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
)

// ErrUngrounded is wrapped (with ErrContract) when a response names an
// entity that is not in the facts.
var ErrUngrounded = errors.New("summary: output cites entities outside the facts")

// External produces a summary from facts with a generative service. The
// returned Output has already passed ValidateOutput and ReconcileFacts.
type External interface {
	Generate(ctx context.Context, f Facts, customPrompt string) (Output, error)
}

// LLMGenerator is the External backed by an llm.Provider. It makes exactly
// one attempt per call.
type LLMGenerator struct {
	provider     llm.Provider
	providerName string
	breaker      *clients.CircuitBreaker
	timeout      time.Duration
	temperature  float64
	templates    *Templates
	now          func() time.Time
	logger       logging.Logger
	metrics      *Metrics
}

type LLMGeneratorConfig struct {
	Provider     llm.Provider
	ProviderName string
	// Breaker is optional. Only transport failures and timeouts count against it.
	Breaker     *clients.CircuitBreaker
	Timeout     time.Duration
	Temperature float64
	Templates   *Templates
	Now         func() time.Time
	Logger      logging.Logger
	Metrics     *Metrics
}

func NewLLMGenerator(cfg LLMGeneratorConfig) *LLMGenerator {
	if cfg.Templates == nil {
		cfg.Templates = TemplatesFor("en")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &LLMGenerator{
		provider:     cfg.Provider,
		providerName: cfg.ProviderName,
		breaker:      cfg.Breaker,
		timeout:      cfg.Timeout,
		temperature:  cfg.Temperature,
		templates:    cfg.Templates,
		now:          cfg.Now,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, f Facts, customPrompt string) (Output, error) {
	msgs, err := g.messages(f, customPrompt)
	if err != nil {
		return Output{}, err
	}

	start := g.now()
	text, err := g.complete(ctx, llm.Request{Messages: msgs, Temperature: g.temperature, JSON: true})
	if err != nil {
		g.metrics.ObserveExternal(g.providerName, callOutcome(err), g.now().Sub(start))
		return Output{}, fmt.Errorf("%w: %w", ErrExternal, err)
	}

	out, err := ParseOutput(text)
	if err != nil {
		g.metrics.ObserveExternal(g.providerName, "invalid", g.now().Sub(start))
		return Output{}, err
	}
	out.Meta = Meta{GeneratedAt: g.now().UnixMilli(), AgeGroup: f.AgeGroup, Location: f.Location}
	if err := ReconcileFacts(&out, f); err != nil {
		g.metrics.ObserveExternal(g.providerName, "ungrounded", g.now().Sub(start))
		return Output{}, err
	}
	if err := ValidateOutput(out); err != nil {
		g.metrics.ObserveExternal(g.providerName, "invalid", g.now().Sub(start))
		return Output{}, err
	}
	g.metrics.ObserveExternal(g.providerName, "ok", g.now().Sub(start))
	return out, nil
}

func (g *LLMGenerator) complete(ctx context.Context, req llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	call := func(ctx context.Context) (any, error) {
		return llm.CompleteText(ctx, g.provider, req)
	}
	if g.breaker == nil {
		text, err := call(ctx)
		if err != nil {
			return "", err
		}
		return text.(string), nil
	}
	res, err := g.breaker.Execute(ctx, call)
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func callOutcome(err error) string {
	switch {
	case errors.Is(err, clients.ErrOpen):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

var outputSchemaHint = map[string]interface{}{
	"shortSummary": "...",
	"interests":    map[string]interface{}{"bullets": []string{"..."}, "whyItMatters": "...", "timeContext": "..."},
	"topTopics":    []interface{}{map[string]interface{}{"topic": "...", "meaning": "...", "platforms": []string{"youtube"}}},
	"topCreators":  []interface{}{map[string]interface{}{"name": "...", "platform": "youtube", "why": "..."}},
	"alerts": []interface{}{map[string]interface{}{
		"item": "...", "category": "...", "severity": "low", "explanation": "...", "suggestedAction": "...",
	}},
}

func systemPrompt(language string) string {
	return strings.Join([]string{
		fmt.Sprintf("You write concise, parent-friendly %s summaries about a child's online activity.", language),
		"Return ONLY valid JSON (no markdown, no extra text).",
		"Do not invent topics/creators/platforms not present in the facts.",
		"Include every alert from the facts exactly once, keeping its item, category and severity.",
		"Avoid full URLs; use domains only if needed.",
	}, " ")
}

type userPrompt struct {
	Facts            Facts       `json:"facts"`
	OutputSchemaHint interface{} `json:"outputSchemaHint"`
	Instructions     string      `json:"instructions,omitempty"`
}

func (g *LLMGenerator) messages(f Facts, customPrompt string) ([]llm.Message, error) {
	user, err := json.Marshal(userPrompt{Facts: f, OutputSchemaHint: outputSchemaHint, Instructions: customPrompt})
	if err != nil {
		return nil, fmt.Errorf("summary: encode prompt: %w", err)
	}
	return []llm.Message{
		{Role: "system", Content: systemPrompt(g.templates.Language)},
		{Role: "user", Content: string(user)},
	}, nil
}

// ParseOutput decodes a model response. Errors wrap ErrContract.
func ParseOutput(text string) (Output, error) {
	var out Output
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &out); err != nil {
		return Output{}, fmt.Errorf("%w: decode response: %v", ErrContract, err)
	}
	return out, nil
}

// ReconcileFacts checks every entity in o against f and rewrites names,
// alert categories and topic weights to their canonical fact values.
func ReconcileFacts(o *Output, f Facts) error {
	type topicFact struct {
		label     string
		platforms map[string]int
		order     []string
	}
	topics := make(map[string]*topicFact)
	for _, a := range f.TopTopics {
		k := fold(a.Label)
		tf, ok := topics[k]
		if !ok {
			tf = &topicFact{label: a.Label, platforms: make(map[string]int)}
			topics[k] = tf
		}
		if _, seen := tf.platforms[a.Platform]; !seen {
			tf.order = append(tf.order, a.Platform)
		}
		tf.platforms[a.Platform] += a.TotalWeight
	}

	for i := range o.TopTopics {
		t := &o.TopTopics[i]
		tf, ok := topics[fold(t.Topic)]
		if !ok {
			return ungrounded("topic %q", t.Topic)
		}
		t.Topic = tf.label
		if len(t.Platforms) == 0 {
			t.Platforms = append([]string(nil), tf.order...)
		}
		weight := 0
		for j, p := range t.Platforms {
			p = fold(p)
			w, ok := tf.platforms[p]
			if !ok {
				return ungrounded("platform %q for topic %q", t.Platforms[j], tf.label)
			}
			t.Platforms[j] = p
			weight += w
		}
		t.Weight = &weight
	}

	creators := make(map[string]string, len(f.TopCreators))
	for _, a := range f.TopCreators {
		creators[fold(a.Platform)+"::"+fold(a.Label)] = a.Label
	}
	for i := range o.TopCreators {
		c := &o.TopCreators[i]
		name, ok := creators[fold(c.Platform)+"::"+fold(c.Name)]
		if !ok {
			return ungrounded("creator %q on %q", c.Name, c.Platform)
		}
		c.Name = name
		c.Platform = fold(c.Platform)
	}

	if len(o.Alerts) != len(f.Alerts) {
		return ungrounded("%d alerts for %d candidates", len(o.Alerts), len(f.Alerts))
	}
	used := make([]bool, len(f.Alerts))
	for i := range o.Alerts {
		a := &o.Alerts[i]
		j := matchCandidate(f.Alerts, used, a)
		if j < 0 {
			return ungrounded("alert %q (%s)", a.Item, a.Severity)
		}
		used[j] = true
		a.Item = f.Alerts[j].Item
		a.Category = f.Alerts[j].Category
		a.Severity = f.Alerts[j].Severity
	}
	return nil
}

func matchCandidate(cands []risk.Candidate, used []bool, a *Alert) int {
	for j, c := range cands {
		if used[j] || fold(c.Item) != fold(a.Item) {
			continue
		}
		if a.Category != "" && !strings.EqualFold(strings.TrimSpace(a.Category), c.Category) {
			continue
		}
		if risk.Severity(fold(string(a.Severity))) != c.Severity {
			continue
		}
		return j
	}
	return -1
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func ungrounded(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w: %s", ErrContract, ErrUngrounded, fmt.Sprintf(format, args...))
}
