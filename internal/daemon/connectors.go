package daemon

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idsweep-io/idsweep/internal/models"
)

// getConnectors lists every registered connector and its availability
//
//	@Summary		List connectors
//	@Description	Get every registered connector type, its capabilities and whether its configuration validates
//	@Tags			connectors
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.ConnectorsResponse	"Registered connectors"
//	@Failure		500	{object}	models.ErrorResponse		"Internal server error"
//	@Router			/connectors [get]
func (s *Server) getConnectors(c *gin.Context) {

	conns, err := s.Config.BuildConnectors()
	if err != nil {
		s.getErrorResponse(c, http.StatusInternalServerError, "Failed to build connectors", err)
		return
	}

	info := make(map[string]models.ConnectorInfo, len(conns))
	for _, connector := range conns {
		info[connector.GetConnectorID()] = models.ConnectorInfo{
			ID:           connector.GetConnectorID(),
			Name:         connector.GetDisplayName(),
			Capabilities: connector.GetCapabilities(),
			Configured:   connector.ValidateConfig() == nil,
		}
	}

	c.JSON(http.StatusOK, models.ConnectorsResponse{
		Version:    "1.0",
		Connectors: info,
	})
}
