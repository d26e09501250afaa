package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
)

const requestIDKey = "request_id"

// SetupCommonMiddleware installs request IDs, access logging, panic
// recovery and CORS, in that order, on every route of r.
func SetupCommonMiddleware(r *gin.Engine, logger logging.Logger) {
	r.Use(
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		RecoveryMiddleware(logger),
		CORSMiddleware(),
	)
}

// GetRequestID returns the ID set by RequestIDMiddleware, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GetContextLogger scopes logger to the request's ID and matched route.
func GetContextLogger(c *gin.Context, logger logging.Logger) *logrus.Entry {
	return logger.WithFields(logging.Fields{
		"request_id": GetRequestID(c),
		"method":     c.Request.Method,
		"route":      routeOf(c),
	})
}
