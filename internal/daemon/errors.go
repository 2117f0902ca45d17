package daemon

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/idsweep-io/idsweep/internal/models"
)

// getErrorResponse logs the failure and writes the JSON error body
func (s *Server) getErrorResponse(c *gin.Context, code int, message string, err ...error) {

	var messages []string

	if len(err) == 0 {

		LogWithCorrelation(c).WithField("code", code).Errorln(message)

	} else {

		// Log all errors
		for _, e := range err {

			if e == nil {
				continue
			}

			LogWithCorrelation(c).WithError(e).Errorln(message)
			messages = append(messages, e.Error())
		}
	}

	// Don't show error details for 500 status codes
	errorMessage := fmt.Sprintf("An internal error occurred. Details are available in the logs at: %s.", time.Now().UTC().Format("2006-01-02 15:04:05"))
	if code != http.StatusInternalServerError {
		errorMessage = strings.Join(messages, ". ")
	}

	c.JSON(code, models.ErrorResponse{
		Code:    code,
		Title:   message,
		Message: errorMessage,
	})
}
