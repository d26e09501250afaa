// Package popular reports what is currently popular with children of a
// given age, generated once per age and day and cached.
package popular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/noonaei/appsFlyer-hackathon/pkg/cache"
	"github.com/noonaei/appsFlyer-hackathon/pkg/clients"
	"github.com/noonaei/appsFlyer-hackathon/pkg/llm"
	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
	"github.com/noonaei/appsFlyer-hackathon/pkg/validation"
)

const (
	MinAge = 1
	MaxAge = 18
)

var ErrInvalidAge = errors.New("popular: age must be between 1-18")

// Content is the popular-content digest.
type Content struct {
	SocialMedia   []string `json:"socialMedia" validate:"required,min=1,dive,notblank"`
	Entertainment []string `json:"entertainment" validate:"required,min=1,dive,notblank"`
	Gaming        []string `json:"gaming" validate:"required,min=1,dive,notblank"`
	Lifestyle     []string `json:"lifestyle" validate:"required,min=1,dive,notblank"`
	Topics        []string `json:"topics" validate:"required,min=1,dive,notblank"`
	Summary       string   `json:"summary" validate:"notblank"`
}

func (c Content) Clone() Content {
	cp := func(s []string) []string { return append(make([]string, 0, len(s)), s...) }
	return Content{
		SocialMedia:   cp(c.SocialMedia),
		Entertainment: cp(c.Entertainment),
		Gaming:        cp(c.Gaming),
		Lifestyle:     cp(c.Lifestyle),
		Topics:        cp(c.Topics),
		Summary:       c.Summary,
	}
}

type Config struct {
	// Provider is optional; without it every miss is served from the fallback.
	Provider     llm.Provider
	ProviderName string
	Breaker      *clients.CircuitBreaker
	Store        cache.Store[Content]
	StoreName    string
	TTL          time.Duration
	Version      string
	Locale       string
	Region       string
	Timeout      time.Duration
	Temperature  float64
	Now          func() time.Time
	Logger       logging.Logger
	Metrics      *Metrics
}

type Service struct {
	cfg       Config
	validator *validation.Validator
	flights   singleflight.Group
}

func NewService(cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Version == "" {
		cfg.Version = "v1"
	}
	if cfg.Region == "" {
		cfg.Region = "Israel"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "memory"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	return &Service{cfg: cfg, validator: validation.New()}
}

type keyInput struct {
	Age    int    `json:"age"`
	Type   string `json:"type"`
	Date   string `json:"date"`
	Locale string `json:"locale"`
	Region string `json:"region"`
}

// Key returns the cache key for age on the day of now.
func (s *Service) Key(age int, now time.Time) (string, error) {
	return cache.HashKey(s.cfg.Version, keyInput{
		Age:    age,
		Type:   "popular_content",
		Date:   now.Format("Mon Jan 02 2006"),
		Locale: s.cfg.Locale,
		Region: s.cfg.Region,
	})
}

// Get returns the digest for age. Generative or cache faults never surface;
// the caller then receives the localized fallback. So does a caller whose ctx
// ends while the digest is still being generated; that fallback is not cached.
func (s *Service) Get(ctx context.Context, age int) (Content, error) {
	if age < MinAge || age > MaxAge {
		return Content{}, ErrInvalidAge
	}
	key, err := s.Key(age, s.cfg.Now())
	if err != nil {
		return Content{}, err
	}
	if c, ok := s.lookup(ctx, key); ok {
		s.cfg.Metrics.IncBuild("cache", "")
		return c, nil
	}

	ch := s.flights.DoChan(key, func() (interface{}, error) {
		// Detached so one caller leaving does not poison the shared entry.
		ctx := context.WithoutCancel(ctx)
		if c, ok := s.lookup(ctx, key); ok {
			return c, nil
		}
		c, source, reason := s.generate(ctx, age)
		if s.cfg.Store != nil {
			if err := s.cfg.Store.Set(ctx, key, c, s.cfg.TTL); err != nil {
				s.cfg.Logger.WithError(err).Warn("Failed to store popular content in cache")
			}
		}
		s.cfg.Metrics.IncBuild(source, reason)
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Content{}, res.Err
		}
		return res.Val.(Content).Clone(), nil
	case <-ctx.Done():
		// The flight keeps running and caches its result for the next caller.
		s.cfg.Logger.WithField("age", age).Warn("Caller gave up waiting for popular content; returning fallback")
		s.cfg.Metrics.IncBuild("fallback", "canceled")
		return Fallback(age, s.cfg.Locale, s.cfg.Region), nil
	}
}

func (s *Service) generate(ctx context.Context, age int) (Content, string, string) {
	log := s.cfg.Logger.WithField("age", age)
	if s.cfg.Provider == nil {
		return Fallback(age, s.cfg.Locale, s.cfg.Region), "fallback", "disabled"
	}

	c, err := s.external(ctx, age)
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, clients.ErrOpen):
			reason = "breaker_open"
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(err, errInvalid):
			reason = "invalid"
		}
		log.WithError(err).WithField("reason", reason).Warn("Popular content generation failed; using fallback")
		return Fallback(age, s.cfg.Locale, s.cfg.Region), "fallback", reason
	}
	log.Info("Popular content generated")
	return c, "external", ""
}

var errInvalid = errors.New("popular: invalid response")

func (s *Service) external(ctx context.Context, age int) (Content, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req := llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "Return ONLY valid JSON (no markdown, no extra text)."},
			{Role: "user", Content: Prompt(age, s.cfg.Locale, s.cfg.Region)},
		},
		Temperature: s.cfg.Temperature,
		JSON:        true,
	}
	call := func(ctx context.Context) (any, error) { return llm.CompleteText(ctx, s.cfg.Provider, req) }

	var (
		res any
		err error
	)
	start := s.cfg.Now()
	if s.cfg.Breaker != nil {
		res, err = s.cfg.Breaker.Execute(ctx, call)
	} else {
		res, err = call(ctx)
	}
	if err != nil {
		s.cfg.Metrics.ObserveExternal(s.cfg.ProviderName, "error", s.cfg.Now().Sub(start))
		return Content{}, err
	}

	var c Content
	if err := json.Unmarshal([]byte(llm.ExtractJSON(res.(string))), &c); err != nil {
		s.cfg.Metrics.ObserveExternal(s.cfg.ProviderName, "invalid", s.cfg.Now().Sub(start))
		return Content{}, fmt.Errorf("%w: %v", errInvalid, err)
	}
	if err := s.validator.Struct(c); err != nil {
		s.cfg.Metrics.ObserveExternal(s.cfg.ProviderName, "invalid", s.cfg.Now().Sub(start))
		return Content{}, fmt.Errorf("%w: %w", errInvalid, err)
	}
	s.cfg.Metrics.ObserveExternal(s.cfg.ProviderName, "ok", s.cfg.Now().Sub(start))
	return c, nil
}

func (s *Service) lookup(ctx context.Context, key string) (Content, bool) {
	if s.cfg.Store == nil {
		return Content{}, false
	}
	c, ok, err := s.cfg.Store.Get(ctx, key)
	switch {
	case err != nil:
		s.cfg.Metrics.IncCacheLookup(s.cfg.StoreName, "error")
		s.cfg.Logger.WithError(err).Warn("Popular content cache lookup failed; treating as miss")
		return Content{}, false
	case ok:
		s.cfg.Metrics.IncCacheLookup(s.cfg.StoreName, "hit")
		return c, true
	default:
		s.cfg.Metrics.IncCacheLookup(s.cfg.StoreName, "miss")
		return Content{}, false
	}
}
