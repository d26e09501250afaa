package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "AI_API_KEY", "LLM_TIMEOUT", "AI_CACHE_TTL_MS", "AI_CACHE_VERSION",
		"CACHE_BACKEND", "CREATOR_AS_TOPIC_PLATFORMS", "SUMMARY_LOCALE", "KAFKA_BROKERS",
		"POPULAR_CACHE_TTL_MS", "POPULAR_REGION", "HTTP_WRITE_TIMEOUT", "LLM_PROVIDER", "LLM_MODEL", "OPENAI_MODEL",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.Port != "18030" {
		t.Errorf("port %q", cfg.Port)
	}
	if cfg.CacheTTL != 10*time.Minute || cfg.PopularCacheTTL != time.Hour {
		t.Errorf("ttl %s / %s", cfg.CacheTTL, cfg.PopularCacheTTL)
	}
	if cfg.CacheVersion != "v1" || cfg.CacheBackend != CacheBackendMemory {
		t.Errorf("cache %q %q", cfg.CacheVersion, cfg.CacheBackend)
	}
	if !reflect.DeepEqual(cfg.CreatorAsTopicPlatforms, []string{"reddit", "instagram", "tiktok"}) {
		t.Errorf("platforms %v", cfg.CreatorAsTopicPlatforms)
	}
	if cfg.PopularRegion != "Israel" || cfg.WriteTimeout != 45*time.Second {
		t.Errorf("region %q write timeout %s", cfg.PopularRegion, cfg.WriteTimeout)
	}
	if cfg.LLMTimeout != 20*time.Second || cfg.LLMTemperature != 0.4 {
		t.Errorf("llm %s %v", cfg.LLMTimeout, cfg.LLMTemperature)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("model %q", cfg.LLM.Model)
	}
	if cfg.SummaryLocale != "en" || cfg.KafkaBrokers != nil {
		t.Errorf("locale %q brokers %v", cfg.SummaryLocale, cfg.KafkaBrokers)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AI_CACHE_TTL_MS", "1500")
	t.Setenv("CACHE_BACKEND", "REDIS")
	t.Setenv("SUMMARY_LOCALE", "he")
	t.Setenv("CREATOR_AS_TOPIC_PLATFORMS", "reddit")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_ALERT_MIN_SEVERITY", "HIGH")

	cfg := LoadConfig()
	if cfg.CacheTTL != 1500*time.Millisecond {
		t.Errorf("ttl %s", cfg.CacheTTL)
	}
	if cfg.CacheBackend != CacheBackendRedis || cfg.SummaryLocale != "he" {
		t.Errorf("backend %q locale %q", cfg.CacheBackend, cfg.SummaryLocale)
	}
	if !reflect.DeepEqual(cfg.CreatorAsTopicPlatforms, []string{"reddit"}) {
		t.Errorf("platforms %v", cfg.CreatorAsTopicPlatforms)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) || cfg.KafkaAlertMinSeverity != "high" {
		t.Errorf("kafka %v %q", cfg.KafkaBrokers, cfg.KafkaAlertMinSeverity)
	}
}

func TestUnknownBackendAndLocaleFallBack(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")
	t.Setenv("SUMMARY_LOCALE", "fr")
	cfg := LoadConfig()
	if cfg.CacheBackend != CacheBackendMemory || cfg.SummaryLocale != "en" {
		t.Fatalf("got %q %q", cfg.CacheBackend, cfg.SummaryLocale)
	}
}
