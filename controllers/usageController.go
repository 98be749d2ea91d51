package controllers

import (
	"net/http"
	"time"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-gonic/gin"
)

func RegisterUsage(c *gin.Context) {
	var input models.NewPartUsage
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	usage, err := workflow.RegisterUsage(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, usage)
}

func UpdateUsage(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.UpdatePartUsage
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	usage, err := workflow.UpdateUsage(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func DeleteUsage(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	usage, err := workflow.DeleteUsage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func GetUsage(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	usage, err := models.GetUsage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func ListUsage(c *gin.Context) {
	ctx := c.Request.Context()
	keyword := c.Query("keyword")
	column := c.Query("column")
	order := c.Query("order")

	var results []*models.PartUsage
	var err error
	switch {
	case keyword != "":
		results, err = models.SearchUsageWithSort(ctx, keyword, column, order)
	case column != "":
		results, err = models.GetUsageSorted(ctx, column, order)
	default:
		results, err = models.GetAllUsage(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetUsageByPartNumber(c *gin.Context) {
	results, err := models.GetUsageByPartNumber(c.Request.Context(), c.Param("partNumber"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetUsageByLocation(c *gin.Context) {
	results, err := models.GetUsageByLocation(c.Request.Context(), c.Query("location"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetUsageByCategory(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	results, err := models.GetUsageByCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetUsageByDateRange(c *gin.Context) {
	const layout = "2006-01-02"
	start, err := time.Parse(layout, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be yyyy-mm-dd"})
		return
	}
	end, err := time.Parse(layout, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be yyyy-mm-dd"})
		return
	}

	results, err := models.GetUsageByDateRange(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetUsageSummary(c *gin.Context) {
	results, err := models.GetUsageSummaryByPart(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
