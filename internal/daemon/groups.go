package daemon

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/models"
)

// getGroups returns the persisted grouping snapshot
//
//	@Summary		List alias groups
//	@Description	Get every persisted alias group with members and display names
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.GroupsResponse	"Alias groups"
//	@Router			/groups [get]
func (s *Server) getGroups(c *gin.Context) {
	c.JSON(http.StatusOK, models.GroupsResponse{
		Version: models.GroupingFileVersion.Original(),
		Groups:  s.Resolver.Groups(),
	})
}

// postMergeUsers merges identifiers into one alias group
//
//	@Summary		Merge users
//	@Description	Fold two or more identifiers into one alias group treated as a single person
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.MergeRequest		true	"Identifiers to merge"
//	@Success		200		{object}	models.MergeResponse	"Resulting group id"
//	@Failure		400		{object}	models.ErrorResponse	"Fewer than two identifiers"
//	@Failure		500		{object}	models.ErrorResponse	"Persistence failure"
//	@Router			/groups/merge [post]
func (s *Server) postMergeUsers(c *gin.Context) {

	var request models.MergeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.getErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	groupID, err := s.Resolver.MergeUsers(request.Emails, request.DisplayName)
	if err != nil {
		if errors.Is(err, models.ErrMergeRequiresTwo) {
			s.getErrorResponse(c, http.StatusBadRequest, "Merge requires at least two identifiers", err)
			return
		}
		s.getErrorResponse(c, http.StatusInternalServerError, "Failed to merge users", err)
		return
	}

	LogWithCorrelation(c).WithFields(logrus.Fields{
		"group":  groupID,
		"emails": len(request.Emails),
	}).Info("Merged users into group")

	c.JSON(http.StatusOK, models.MergeResponse{GroupID: groupID})
}

// postSplitGroup removes members from an alias group
//
//	@Summary		Split group
//	@Description	Remove every member not in the keep list from a group, deleting the group when zero or one member remains
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.SplitRequest		true	"Group id and members to keep"
//	@Success		200		{object}	map[string]any			"Split outcome"
//	@Failure		400		{object}	models.ErrorResponse	"Malformed request"
//	@Failure		404		{object}	models.ErrorResponse	"Group not found"
//	@Failure		500		{object}	models.ErrorResponse	"Persistence failure"
//	@Router			/groups/split [post]
func (s *Server) postSplitGroup(c *gin.Context) {

	var request models.SplitRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.getErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	if len(request.GroupID) == 0 {
		s.getErrorResponse(c, http.StatusBadRequest, "No group id provided")
		return
	}

	if err := s.Resolver.SplitUsers(request.GroupID, request.EmailsToKeep); err != nil {
		if errors.Is(err, models.ErrGroupNotFound) {
			s.getErrorResponse(c, http.StatusNotFound, "Group not found", err)
			return
		}
		s.getErrorResponse(c, http.StatusInternalServerError, "Failed to split group", err)
		return
	}

	LogWithCorrelation(c).WithFields(logrus.Fields{
		"group": request.GroupID,
		"kept":  len(request.EmailsToKeep),
	}).Info("Split group")

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"group_id": request.GroupID,
	})
}
