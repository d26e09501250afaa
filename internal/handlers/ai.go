package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noonaei/appsFlyer-hackathon/internal/popular"
	"github.com/noonaei/appsFlyer-hackathon/internal/summary"
	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
	"github.com/noonaei/appsFlyer-hackathon/pkg/middleware"
	"github.com/noonaei/appsFlyer-hackathon/pkg/validation"
)

type AIHandler struct {
	summaries    SummaryBuilder
	popular      PopularContent
	rules        RulesSource
	cacheStats   CacheStatsFunc
	cacheVersion string
	logger       logging.Logger
	metrics      *AIMetrics
}

func NewAIHandler(
	summaries SummaryBuilder,
	popularContent PopularContent,
	rules RulesSource,
	cacheStats CacheStatsFunc,
	cacheVersion string,
	logger logging.Logger,
	metrics *AIMetrics,
) *AIHandler {
	return &AIHandler{
		summaries:    summaries,
		popular:      popularContent,
		rules:        rules,
		cacheStats:   cacheStats,
		cacheVersion: cacheVersion,
		logger:       logger,
		metrics:      metrics,
	}
}

// RegisterRoutes mounts the AI endpoints on group.
func (h *AIHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/summary", h.Summary)
	group.GET("/popular/:age", h.Popular)
	group.GET("/cache/stats", h.CacheStats)
	group.GET("/rules", h.Rules)
}

func (h *AIHandler) Summary(c *gin.Context) {
	log := middleware.GetContextLogger(c, h.logger)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.IncSummary("too_large")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		h.metrics.IncSummary("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": []validation.Violation{}})
		return
	}

	req, err := summary.ParseRequest(body)
	if err != nil {
		violations, _ := validation.Violations(err)
		if violations == nil {
			violations = []validation.Violation{}
		}
		h.metrics.IncSummary("invalid_input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": violations})
		return
	}

	log.WithFields(logging.Fields{
		"items":    len(req.History),
		"ageGroup": req.AgeGroup,
		"location": req.Location,
	}).Info("Summary requested")

	o, err := h.summaries.Build(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, summary.ErrContract) {
			h.metrics.IncSummary("schema_mismatch")
			log.WithError(err).Error("AI output schema mismatch")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "AI output schema mismatch"})
			return
		}
		h.metrics.IncSummary("error")
		log.WithError(err).Error("AI summary error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate AI summary"})
		return
	}

	h.metrics.IncSummary(string(o.Source))
	c.Header(middleware.SummarySourceHeader, string(o.Source))
	if o.Reason != summary.ReasonNone {
		c.Header(middleware.SummaryReasonHeader, string(o.Reason))
	}
	c.JSON(http.StatusOK, o.Output)
}

func (h *AIHandler) Popular(c *gin.Context) {
	age, err := strconv.Atoi(c.Param("age"))
	if err != nil || age < popular.MinAge || age > popular.MaxAge {
		h.metrics.IncPopular("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Age must be between 1-18"})
		return
	}

	content, err := h.popular.Get(c.Request.Context(), age)
	if err != nil {
		if errors.Is(err, popular.ErrInvalidAge) {
			h.metrics.IncPopular("bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Age must be between 1-18"})
			return
		}
		h.metrics.IncPopular("error")
		middleware.GetContextLogger(c, h.logger).WithError(err).Error("Popular content error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get popular content"})
		return
	}

	h.metrics.IncPopular("ok")
	c.JSON(http.StatusOK, content)
}

func (h *AIHandler) CacheStats(c *gin.Context) {
	stats, err := h.cacheStats(c.Request.Context())
	if err != nil {
		middleware.GetContextLogger(c, h.logger).WithError(err).Warn("Cache stats unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cache unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"size":    stats.Size,
		"ttlMs":   stats.TTLMs,
		"version": h.cacheVersion,
	})
}

func (h *AIHandler) Rules(c *gin.Context) {
	rs := h.rules.Rules()
	c.JSON(http.StatusOK, gin.H{
		"version":       rs.Version,
		"weakThreshold": rs.WeakThreshold,
		"categories":    rs.Categories(),
	})
}
