package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/noonaei/appsFlyer-hackathon/internal/aggregate"
	internalconfig "github.com/noonaei/appsFlyer-hackathon/internal/config"
	"github.com/noonaei/appsFlyer-hackathon/internal/handlers"
	"github.com/noonaei/appsFlyer-hackathon/internal/notify"
	"github.com/noonaei/appsFlyer-hackathon/internal/popular"
	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/internal/summary"
	"github.com/noonaei/appsFlyer-hackathon/pkg/cache"
	"github.com/noonaei/appsFlyer-hackathon/pkg/clients"
	"github.com/noonaei/appsFlyer-hackathon/pkg/config"
	"github.com/noonaei/appsFlyer-hackathon/pkg/llm"
	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
	"github.com/noonaei/appsFlyer-hackathon/pkg/middleware"
	"github.com/noonaei/appsFlyer-hackathon/pkg/monitoring"
	"github.com/noonaei/appsFlyer-hackathon/pkg/server"
	"github.com/noonaei/appsFlyer-hackathon/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("lookout")
	config.LoadEnv(logger)
	// LOG_LEVEL may come from .env.
	logger.SetLevel(config.GetLogLevel())

	cfg := internalconfig.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rules := risk.DefaultRules()
	if cfg.RiskRulesPath != "" {
		loaded, err := risk.LoadRules(cfg.RiskRulesPath)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.RiskRulesPath).Fatal("Failed to load risk rules")
		}
		rules = loaded
	}
	scorer := risk.NewScorer(rules)
	logger.WithFields(logging.Fields{
		"version":    rules.Version,
		"categories": rules.Categories(),
	}).Info("Risk rules loaded")

	healthChecker := monitoring.NewHealthChecker("lookout", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("lookout", version.Version, version.GitCommit)
	pipelineMetrics := metricsCollector.CreatePipelineMetrics()
	summaryMetrics := &summary.Metrics{
		Builds:           pipelineMetrics.Builds,
		CacheLookups:     pipelineMetrics.CacheLookups,
		ExternalDuration: pipelineMetrics.ExternalDuration,
		Alerts:           pipelineMetrics.Alerts,
	}
	popularMetrics := &popular.Metrics{
		Builds:           pipelineMetrics.Builds,
		CacheLookups:     pipelineMetrics.CacheLookups,
		ExternalDuration: pipelineMetrics.ExternalDuration,
	}
	aiMetrics := &handlers.AIMetrics{
		SummaryRequests: metricsCollector.NewCounter("ai_summary_requests_total", "Summary requests by result", []string{"status"}),
		PopularRequests: metricsCollector.NewCounter("ai_popular_requests_total", "Popular content requests by result", []string{"status"}),
	}

	// Cache stores
	memCache := cache.New(cache.Options{
		TTL:           cfg.CacheTTL,
		MaxEntries:    cfg.CacheMaxEntries,
		SweepInterval: cfg.CacheSweep,
	}, cache.MetricsHooks{})
	popularCache := cache.New(cache.Options{
		TTL:           cfg.PopularCacheTTL,
		MaxEntries:    cfg.CacheMaxEntries,
		SweepInterval: cfg.CacheSweep,
	}, cache.MetricsHooks{})
	go memCache.RunSweeper(ctx)
	go popularCache.RunSweeper(ctx)

	var summaryStore cache.Store[summary.Output] = cache.NewMemoryStore(memCache, summary.Output.Clone)
	var popularStore cache.Store[popular.Content] = cache.NewMemoryStore(popularCache, popular.Content.Clone)
	storeName := internalconfig.CacheBackendMemory
	cacheStats := func(context.Context) (cache.Stats, error) { return memCache.Stats(), nil }

	var redisClient *goredis.Client
	if cfg.CacheBackend == internalconfig.CacheBackendRedis {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable; using in-memory cache")
		} else {
			redisClient = client
			summaryRedis := cache.NewRedisStore(client, cfg.RedisPrefix+"summary:")
			popularRedis := cache.NewRedisStore(client, cfg.RedisPrefix+"popular:")
			summaryJSON := cache.NewRedisJSONStore[summary.Output](summaryRedis, cfg.CacheTTL)
			summaryStore = summaryJSON
			popularStore = cache.NewRedisJSONStore[popular.Content](popularRedis, cfg.PopularCacheTTL)
			storeName = internalconfig.CacheBackendRedis
			cacheStats = func(ctx context.Context) (cache.Stats, error) {
				n, err := summaryJSON.Len(ctx)
				if err != nil {
					return cache.Stats{}, err
				}
				return cache.Stats{Size: n, TTLMs: cfg.CacheTTL.Milliseconds()}, nil
			}
			healthChecker.AddCheck("redis", monitoring.PingHealthCheck("redis", summaryRedis))
			logger.WithField("prefix", cfg.RedisPrefix).Info("Using Redis cache")
		}
	}

	// Generative service
	templates := summary.TemplatesFor(cfg.SummaryLocale)
	var external summary.External
	var provider llm.Provider
	var breaker *clients.CircuitBreaker

	p, err := llm.NewProvider(cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.WithField("provider", cfg.LLM.Provider).Warn("LLM not configured; serving template summaries only")
	case err != nil:
		logger.WithError(err).Fatal("Invalid LLM configuration")
	default:
		provider = p
		breakerMetrics := clients.NewBreakerMetrics(metricsCollector.Registry())
		breaker = clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
			Name:          "llm",
			MinRequests:   cfg.LLMBreakerWindow,
			Timeout:       cfg.LLMBreakerDelay,
			Logger:        logger,
			OnStateChange: breakerMetrics.Callback(),
		})
		breakerMetrics.Init(breaker)
		healthChecker.AddCheck("llm_circuit", monitoring.CircuitHealthCheck("llm", breaker.IsOpen))

		external = summary.NewLLMGenerator(summary.LLMGeneratorConfig{
			Provider:     provider,
			ProviderName: cfg.LLM.Provider,
			Breaker:      breaker,
			Timeout:      cfg.LLMTimeout,
			Temperature:  cfg.LLMTemperature,
			Templates:    templates,
			Logger:       logger,
			Metrics:      summaryMetrics,
		})
		logger.WithFields(logging.Fields{
			"provider": cfg.LLM.Provider,
			"model":    cfg.LLM.Model,
		}).Info("LLM enrichment enabled")
	}

	// Alert fan-out
	var kafkaClient *kgo.Client
	var notifyFn summary.NotifyFunc
	if len(cfg.KafkaBrokers) > 0 {
		client, err := notify.NewKafkaClient(cfg.KafkaBrokers, "lookout")
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka client")
		}
		kafkaClient = client
		messages, duration := metricsCollector.CreateKafkaMetrics()
		publisher := notify.NewPublisher(notify.Config{
			Producer:    client,
			Topic:       cfg.KafkaAlertsTopic,
			MinSeverity: risk.Severity(cfg.KafkaAlertMinSeverity),
			Logger:      logger,
			Messages:    messages,
			Duration:    duration,
		})
		notifyFn = publisher.Notify
		healthChecker.AddCheck("kafka", monitoring.KafkaProducerHealthCheck(client))
	}

	generator := summary.NewGenerator(summary.GeneratorConfig{
		Store:     summaryStore,
		StoreName: storeName,
		External:  external,
		Templates: templates,
		TTL:       cfg.CacheTTL,
		Version:   cfg.CacheVersion,
		Logger:    logger,
		Metrics:   summaryMetrics,
		Notify:    notifyFn,
	})
	pipeline := summary.NewPipeline(summary.PipelineConfig{
		Aggregator: aggregate.New(cfg.CreatorAsTopicPlatforms),
		Scorer:     scorer,
		Generator:  generator,
		TopN:       cfg.TopN,
		Locale:     cfg.SummaryLocale,
		Logger:     logger,
	})
	popularService := popular.NewService(popular.Config{
		Provider:     provider,
		ProviderName: cfg.LLM.Provider,
		Breaker:      breaker,
		Store:        popularStore,
		StoreName:    storeName,
		TTL:          cfg.PopularCacheTTL,
		Version:      cfg.CacheVersion,
		Locale:       cfg.SummaryLocale,
		Region:       cfg.PopularRegion,
		Timeout:      cfg.LLMTimeout,
		Temperature:  cfg.LLMTemperature,
		Logger:       logger,
		Metrics:      popularMetrics,
	})

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"AI_API_KEY":  cfg.AIAPIKey,
		"LLM_API_KEY": cfg.LLM.APIKey,
	}))

	go reloadRulesOnHangup(ctx, scorer, cfg.RiskRulesPath, logger)

	app := server.SetupServiceRouter(logger, "lookout", healthChecker, metricsCollector)

	aiHandler := handlers.NewAIHandler(pipeline, popularService, scorer, cacheStats, cfg.CacheVersion, logger, aiMetrics)
	ai := app.Group("/api/ai",
		middleware.BodyLimitMiddleware(int64(cfg.MaxBodyKiB)*1024),
		middleware.APIKeyMiddleware(cfg.AIAPIKey),
	)
	aiHandler.RegisterRoutes(ai)

	serverConfig := server.DefaultConfig("lookout", cfg.Port)
	serverConfig.WriteTimeout = cfg.WriteTimeout
	if serverConfig.WriteTimeout <= cfg.LLMTimeout {
		logger.WithFields(logging.Fields{
			"write_timeout": serverConfig.WriteTimeout.String(),
			"llm_timeout":   cfg.LLMTimeout.String(),
		}).Warn("HTTP write timeout does not exceed LLM timeout; slow generations may be cut off")
	}

	runErr := server.Run(ctx, serverConfig, app, logger)

	if kafkaClient != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := kafkaClient.Flush(flushCtx); err != nil {
			logger.WithError(err).Warn("Kafka flush incomplete")
		}
		cancel()
		kafkaClient.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if runErr != nil {
		logger.Fatal(runErr.Error())
	}
}

// reloadRulesOnHangup swaps the risk table on SIGHUP. Without a rules path
// there is nothing to reread and the embedded table stays active.
func reloadRulesOnHangup(ctx context.Context, scorer *risk.Scorer, path string, logger logging.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if path == "" {
				logger.Info("SIGHUP received but RISK_RULES_PATH is unset; keeping embedded rules")
				continue
			}
			rs, err := scorer.Reload(path)
			if err != nil {
				logger.WithError(err).WithField("path", path).Error("Risk rules reload failed; keeping active table")
				continue
			}
			logger.WithFields(logging.Fields{
				"version":    rs.Version,
				"categories": rs.Categories(),
			}).Info("Risk rules reloaded")
		}
	}
}
