package daemon

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idsweep-io/idsweep/internal/common"
)

// getCompare runs the consolidation pipeline across every enumerable source
//
//	@Summary		Compare sources
//	@Description	Enumerate every source that supports it and return the consolidated group by source presence matrix
//	@Tags			compare
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.ComparisonResult	"Consolidated comparison matrix"
//	@Failure		500	{object}	models.ErrorResponse	"Internal server error"
//	@Router			/compare [get]
func (s *Server) getCompare(c *gin.Context) {

	engine, err := s.buildEngine()
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Failed to build connectors", err)
		return
	}

	result, err := engine.Compare(c.Request.Context(), s.Resolver)
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Comparison failed", err)
		return
	}

	LogWithCorrelation(c).WithField("groups", len(result.AllUsers)).Info("Compared sources")

	c.JSON(http.StatusOK, result)
}

// getUsers lists every known identifier with per-source presence and details
//
//	@Summary		List all users
//	@Description	Get the union of identifiers across every enumerable source with per-source presence and attribute records
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.DirectoryResult	"Directory listing"
//	@Failure		500	{object}	models.ErrorResponse	"Internal server error"
//	@Router			/users [get]
func (s *Server) getUsers(c *gin.Context) {

	engine, err := s.buildEngine()
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Failed to build connectors", err)
		return
	}

	result, err := engine.Directory(c.Request.Context())
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Directory listing failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// getUserByIdentifier looks one identifier up in every source
//
//	@Summary		User details
//	@Description	Get per-source details for a single identifier from every configured source
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			identifier	path		string						true	"Email or username"
//	@Success		200			{object}	models.UserDetailsResult	"Per-source details"
//	@Failure		400			{object}	models.ErrorResponse		"Missing identifier"
//	@Failure		500			{object}	models.ErrorResponse		"Internal server error"
//	@Router			/user/{identifier} [get]
func (s *Server) getUserByIdentifier(c *gin.Context) {

	identifier := common.NormalizeIdentifier(c.Param("identifier"))
	if len(identifier) == 0 {
		s.getErrorResponse(c, http.StatusBadRequest, "No identifier provided")
		return
	}

	engine, err := s.buildEngine()
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Failed to build connectors", err)
		return
	}

	result, err := engine.DescribeUser(c.Request.Context(), identifier)
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Detail lookup failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}
