package controllers

import (
	"net/http"
	"time"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-gonic/gin"
)

func GetCurrentInventory(c *gin.Context) {
	results, err := models.GetCurrentInventory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetLowStock(c *gin.Context) {
	results, err := models.GetLowStock(c.Request.Context(), queryInt(c, "threshold"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// ExportInventory streams the full dataset as an xlsx workbook.
func ExportInventory(c *gin.Context) {
	filename := "inventory_" + time.Now().Format("20060102_150405") + ".xlsx"
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	if err := workflow.ExportInventoryWorkbook(c.Request.Context(), c.Writer); err != nil {
		respondError(c, err)
	}
}
