package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-gonic/gin"
)

func RegisterIncoming(c *gin.Context) {
	var input models.NewPartIncoming
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	incoming, err := workflow.RegisterIncoming(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, incoming)
}

func UpdateIncoming(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewPartIncoming
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	incoming, err := workflow.UpdateIncoming(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incoming)
}

func DeleteIncoming(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	incoming, err := workflow.DeleteIncoming(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incoming)
}

func GetIncoming(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	incoming, err := models.GetIncoming(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incoming)
}

// ListIncoming serves the grid: optional keyword filter plus whitelisted
// column sorting.
func ListIncoming(c *gin.Context) {
	ctx := c.Request.Context()
	keyword := c.Query("keyword")
	column := c.Query("column")
	order := c.Query("order")

	var results []*models.PartIncoming
	var err error
	switch {
	case keyword != "":
		results, err = models.SearchIncomingWithSort(ctx, keyword, column, order)
	case column != "":
		results, err = models.GetIncomingSorted(ctx, column, order)
	default:
		results, err = models.GetAllIncoming(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetIncomingByPartNumber(c *gin.Context) {
	results, err := models.GetIncomingByPartNumber(c.Request.Context(), c.Param("partNumber"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetIncomingByCategory(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	results, err := models.GetIncomingByCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func SearchIncomingAdvanced(c *gin.Context) {
	var params models.IncomingSearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindingError(c, err)
		return
	}
	results, err := models.SearchIncomingAdvanced(c.Request.Context(), &params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
