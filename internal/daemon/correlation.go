package daemon

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// correlationIDKey is the context key used to store the correlation ID
const correlationIDKey = "correlation_id"

// CorrelationMiddleware tags each request with a correlation id. An incoming
// X-Correlation-ID header is reused so callers can trace a request across
// services; otherwise a fresh UUID is generated. The id is stored in the gin
// context and echoed on the response header.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")

		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(correlationIDKey, correlationID)
		c.Header("X-Correlation-ID", correlationID)

		c.Next()
	}
}

// GetCorrelationID retrieves the correlation ID from the request context.
// Returns an empty string if no correlation ID is found.
func GetCorrelationID(c *gin.Context) string {
	if id, exists := c.Get(correlationIDKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}

// LogWithCorrelation creates a logrus entry with the correlation ID included
// so all log lines for a request can be tied together.
func LogWithCorrelation(c *gin.Context) *logrus.Entry {
	return logrus.WithField("correlation_id", GetCorrelationID(c))
}
