package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-gonic/gin"
)

func GetMapSpots(c *gin.Context) {
	imageId := queryInt(c, "image_id")
	if imageId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_id is required"})
		return
	}
	results, err := models.GetMapSpotsByImageId(c.Request.Context(), imageId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// SyncMapSpots applies an editor batch of deletes, updates, and inserts in
// one transaction.
func SyncMapSpots(c *gin.Context) {
	var request models.MapSpotSyncRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := models.SyncMapSpots(ctx, &request); err != nil {
		respondError(c, err)
		return
	}

	imageId := 0
	for _, spot := range append(request.ToInsert, request.ToUpdate...) {
		if spot != nil && spot.ImageId > 0 {
			imageId = spot.ImageId
			break
		}
	}
	workflow.RecordAudit(ctx, "map_spot", imageId, "SYNC", nil,
		workflow.ResolveActor(ctx, ""))

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
