package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/models"
	"github.com/gin-gonic/gin"
)

func ListAccessLogs(c *gin.Context) {
	if userId := queryInt(c, "user_id"); userId > 0 {
		results, err := models.GetAccessLogsByUserId(c.Request.Context(), userId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
		return
	}

	results, err := models.GetAllAccessLogs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
