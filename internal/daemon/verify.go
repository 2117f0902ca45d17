package daemon

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/models"
)

// headerCells mark a first CSV row as a header to skip rather than an
// identifier.
var headerCells = []string{"username", "user", "email", "account"}

// postVerify checks a list of identifiers against every configured source
//
//	@Summary		Verify users
//	@Description	Check whether each identifier exists in every configured identity source
//	@Tags			verify
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.VerifyRequest		true	"Identifiers to verify"
//	@Success		200		{object}	models.VerificationResult	"Identifier by source existence grid"
//	@Failure		400		{object}	models.ErrorResponse		"Empty or malformed request"
//	@Failure		500		{object}	models.ErrorResponse		"Internal server error"
//	@Router			/verify [post]
func (s *Server) postVerify(c *gin.Context) {

	var request models.VerifyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.getErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	if len(request.Users) == 0 {
		s.getErrorResponse(c, http.StatusBadRequest, "No users provided")
		return
	}

	atomic.AddInt64(&s.VerifyRequests, 1)

	engine, err := s.buildEngine()
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Failed to build connectors", err)
		return
	}

	result, err := engine.CheckUsers(c.Request.Context(), request.Users)
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Verification failed", err)
		return
	}

	LogWithCorrelation(c).WithField("users", len(result.Users)).Info("Verified users")

	c.JSON(http.StatusOK, result)
}

// postUpload parses an uploaded CSV of identifiers
//
//	@Summary		Upload user list
//	@Description	Parse a CSV file whose first column holds identifiers, skipping an optional header row
//	@Tags			verify
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file					true	"CSV file"
//	@Success		200		{object}	models.UploadResult		"Parsed identifiers"
//	@Failure		400		{object}	models.ErrorResponse	"Missing or unparseable file"
//	@Router			/upload [post]
func (s *Server) postUpload(c *gin.Context) {

	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.getErrorResponse(c, http.StatusBadRequest, "No file provided", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.getErrorResponse(c, http.StatusBadRequest, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		s.getErrorResponse(c, http.StatusBadRequest, "Error parsing CSV", err)
		return
	}

	users := parseUploadedUsers(rows)
	if len(users) == 0 {
		s.getErrorResponse(c, http.StatusBadRequest, "No valid usernames found in CSV")
		return
	}

	LogWithCorrelation(c).WithFields(logrus.Fields{
		"file":  fileHeader.Filename,
		"users": len(users),
	}).Info("Parsed uploaded user list")

	c.JSON(http.StatusOK, models.UploadResult{
		UserCount: len(users),
		Users:     users,
		Message:   fmt.Sprintf("Successfully parsed %d users", len(users)),
	})
}

// parseUploadedUsers extracts identifiers from the first CSV column. A first
// row whose leading cell is a known header name is skipped; blank entries are
// dropped and duplicates collapse.
func parseUploadedUsers(rows [][]string) []string {
	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		first := strings.ToLower(strings.TrimSpace(rows[0][0]))
		for _, header := range headerCells {
			if first == header {
				start = 1
				break
			}
		}
	}

	users := make([]string, 0, len(rows))
	for _, row := range rows[start:] {
		if len(row) == 0 {
			continue
		}
		if user := strings.TrimSpace(row[0]); len(user) > 0 {
			users = append(users, user)
		}
	}
	return common.UniqueStable(users)
}
