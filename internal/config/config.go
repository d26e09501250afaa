package config

import (
	"strings"
	"time"

	"github.com/noonaei/appsFlyer-hackathon/pkg/config"
	"github.com/noonaei/appsFlyer-hackathon/pkg/llm"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config stores environment configuration for the lookout service.
type Config struct {
	Port         string
	AIAPIKey     string
	MaxBodyKiB   int
	WriteTimeout time.Duration

	LLM            llm.Config
	LLMTimeout     time.Duration
	LLMTemperature float64
	// Breaker settings for the generative service.
	LLMBreakerWindow uint32
	LLMBreakerDelay  time.Duration

	CacheTTL        time.Duration
	CacheVersion    string
	CacheMaxEntries int
	CacheSweep      time.Duration
	PopularCacheTTL time.Duration
	PopularRegion   string
	CacheBackend    string
	RedisURL        string
	RedisPrefix     string

	RiskRulesPath           string
	CreatorAsTopicPlatforms []string
	TopN                    int
	SummaryLocale           string

	KafkaBrokers          []string
	KafkaAlertsTopic      string
	KafkaAlertMinSeverity string
}

// LoadConfig loads the service configuration from environment variables.
func LoadConfig() Config {
	backend := strings.ToLower(config.GetEnv("CACHE_BACKEND", CacheBackendMemory))
	if backend != CacheBackendRedis {
		backend = CacheBackendMemory
	}
	locale := strings.ToLower(config.GetEnv("SUMMARY_LOCALE", "en"))
	if locale != "he" {
		locale = "en"
	}

	return Config{
		Port:         config.GetEnv("PORT", "18030"),
		AIAPIKey:     config.GetEnv("AI_API_KEY", ""),
		MaxBodyKiB:   config.GetEnvInt("HTTP_MAX_BODY_KIB", 2048),
		WriteTimeout: config.GetEnvDuration("HTTP_WRITE_TIMEOUT", 45*time.Second),

		LLM:              llm.LoadConfig(),
		LLMTimeout:       config.GetEnvDuration("LLM_TIMEOUT", 20*time.Second),
		LLMTemperature:   config.GetEnvFloat("LLM_TEMPERATURE", 0.4),
		LLMBreakerWindow: uint32(config.GetEnvInt("LLM_BREAKER_WINDOW", 10)),
		LLMBreakerDelay:  config.GetEnvDuration("LLM_BREAKER_DELAY", 30*time.Second),

		CacheTTL:        config.GetEnvMillis("AI_CACHE_TTL_MS", 10*time.Minute),
		CacheVersion:    config.GetEnv("AI_CACHE_VERSION", "v1"),
		CacheMaxEntries: config.GetEnvInt("AI_CACHE_MAX_ENTRIES", 1000),
		CacheSweep:      config.GetEnvDuration("AI_CACHE_SWEEP", time.Minute),
		PopularCacheTTL: config.GetEnvMillis("POPULAR_CACHE_TTL_MS", time.Hour),
		PopularRegion:   config.GetEnv("POPULAR_REGION", "Israel"),
		CacheBackend:    backend,
		RedisURL:        config.GetEnv("REDIS_URL", ""),
		RedisPrefix:     config.GetEnv("REDIS_KEY_PREFIX", "lookout:"),

		RiskRulesPath:           config.GetEnv("RISK_RULES_PATH", ""),
		CreatorAsTopicPlatforms: config.GetEnvList("CREATOR_AS_TOPIC_PLATFORMS", []string{"reddit", "instagram", "tiktok"}),
		TopN:                    config.GetEnvInt("SUMMARY_FACTS_TOP_N", 8),
		SummaryLocale:           locale,

		KafkaBrokers:          config.GetEnvList("KAFKA_BROKERS", nil),
		KafkaAlertsTopic:      config.GetEnv("KAFKA_ALERTS_TOPIC", "parent-alerts"),
		KafkaAlertMinSeverity: strings.ToLower(config.GetEnv("KAFKA_ALERT_MIN_SEVERITY", "medium")),
	}
}
