package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/models"
)

// AuthMiddleware guards the API group with static keys. Callers present a
// key in the X-API-Key header or as an Authorization bearer token. The
// health, ready and metrics endpoints stay outside the guard so probes keep
// working.
func AuthMiddleware(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := presentedAPIKey(c)

		if !keyMatches(presented, keys) {
			LogWithCorrelation(c).WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("Rejected request with missing or invalid API key")

			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:  http.StatusUnauthorized,
				Title: "Invalid or missing API key",
			})
			return
		}

		c.Next()
	}
}

// presentedAPIKey pulls the caller's key from the X-API-Key header, falling
// back to an Authorization bearer token.
func presentedAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); len(key) > 0 {
		return key
	}

	auth := c.GetHeader("Authorization")
	if token, found := strings.CutPrefix(auth, "Bearer "); found {
		return token
	}

	return ""
}

// keyMatches compares the presented key against every configured key in
// constant time.
func keyMatches(presented string, keys []string) bool {
	if len(presented) == 0 {
		return false
	}

	matched := false
	for _, key := range keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			matched = true
		}
	}
	return matched
}
