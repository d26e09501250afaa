package middleware

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
)

// Context represents an HTTP request context
type Context = *gin.Context

// HandlerFunc represents an HTTP handler function
type HandlerFunc = gin.HandlerFunc

// H is a shortcut for map[string]interface{}
type H = gin.H

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// Summary responses describe how they were produced; the access log and
// browser clients both read these.
const (
	SummarySourceHeader = "X-Summary-Source"
	SummaryReasonHeader = "X-Summary-Fallback-Reason"
)

// LoggingMiddleware writes one access log line per request. Probe endpoints
// log at debug, server errors at error.
func LoggingMiddleware(logger logging.Logger) HandlerFunc {
	return func(c Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := logging.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"route":      routeOf(c),
			"latency_ms": time.Since(start).Milliseconds(),
			"bytes_out":  c.Writer.Size(),
			"client_ip":  c.ClientIP(),
			"request_id": GetRequestID(c),
		}
		if src := c.Writer.Header().Get(SummarySourceHeader); src != "" {
			fields["summary_source"] = src
			if reason := c.Writer.Header().Get(SummaryReasonHeader); reason != "" {
				fields["fallback_reason"] = reason
			}
		}
		entry := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch path := c.Request.URL.Path; {
		case status >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case path == "/health" || path == "/metrics":
			entry.Debug("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}

// CORSMiddleware opens the API to the extension and dashboard. Preflights
// are answered here and never reach the API key check.
func CORSMiddleware() HandlerFunc {
	allowHeaders := strings.Join([]string{"Content-Type", "Authorization", "X-API-Key", requestIDHeader}, ", ")
	exposeHeaders := strings.Join([]string{requestIDHeader, SummarySourceHeader, SummaryReasonHeader}, ", ")
	return func(c Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Expose-Headers", exposeHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RecoveryMiddleware turns a handler panic into a 500 and an error log.
func RecoveryMiddleware(logger logging.Logger) HandlerFunc {
	return func(c Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			GetContextLogger(c, logger).WithField("panic", rec).Error("Request handler panic")
			c.AbortWithStatusJSON(http.StatusInternalServerError, H{"error": "Internal server error"})
		}()
		c.Next()
	}
}

// RequestIDMiddleware propagates a caller's X-Request-ID or assigns a UUID.
// Oversized or non-printable incoming IDs are replaced.
func RequestIDMiddleware() HandlerFunc {
	return func(c Context) {
		id := c.GetHeader(requestIDHeader)
		if !validRequestID(id) {
			id = GenerateRequestID()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// BodyLimitMiddleware caps request bodies at limit bytes. Reads past the
// limit fail with *http.MaxBytesError.
func BodyLimitMiddleware(limit int64) HandlerFunc {
	return func(c Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return uuid.New().String()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || r == ' ' {
			return false
		}
	}
	return true
}

func routeOf(c Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
