package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/models"
	"github.com/gin-gonic/gin"
)

// ListAudits serves the audit screen. Reads are degraded, never failed: the
// model returns an empty list on error.
func ListAudits(c *gin.Context) {
	results := models.GetRecentAudits(c.Request.Context(),
		c.Query("entity_type"), queryInt(c, "entity_id"), queryInt(c, "limit"))
	c.JSON(http.StatusOK, results)
}

func ListAuditsByActor(c *gin.Context) {
	results := models.GetAuditsByActor(c.Request.Context(), c.Param("actor"), queryInt(c, "limit"))
	c.JSON(http.StatusOK, results)
}
