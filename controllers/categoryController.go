package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-gonic/gin"
)

func CreateCategory(c *gin.Context) {
	var input models.NewCategory
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	category, err := workflow.CreateCategory(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func UpdateCategory(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewCategory
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	category, err := workflow.UpdateCategory(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func DeactivateCategory(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	category, err := workflow.DeactivateCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func DeleteCategory(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	category, err := workflow.DeleteCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func GetCategory(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	category, err := models.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func ListCategories(c *gin.Context) {
	var name *string
	if q := c.Query("name"); q != "" {
		name = &q
	}
	results, err := models.GetCategories(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// SyncCategorySequences lets an operator force a counter catch-up, e.g.
// after a bulk import with manual part numbers.
func SyncCategorySequences(c *gin.Context) {
	if err := workflow.SyncCategorySequencesGuarded(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
