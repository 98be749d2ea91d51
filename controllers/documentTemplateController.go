package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-gonic/gin"
)

func CreateDocumentTemplate(c *gin.Context) {
	var input models.NewDocumentTemplate
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	template, err := workflow.CreateDocumentTemplate(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

func UpdateDocumentTemplate(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewDocumentTemplate
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	template, err := workflow.UpdateDocumentTemplate(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func DeleteDocumentTemplate(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	template, err := workflow.DeleteDocumentTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func GetDocumentTemplate(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	template, err := models.GetDocumentTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func ListDocumentTemplates(c *gin.Context) {
	results, err := models.GetDocumentTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func CreateGeneratedDocument(c *gin.Context) {
	var input models.NewGeneratedDocument
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	document, err := workflow.CreateGeneratedDocument(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, document)
}

func DeleteGeneratedDocument(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	document, err := workflow.DeleteGeneratedDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, document)
}

func GetGeneratedDocument(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	document, err := models.GetGeneratedDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, document)
}

func ListGeneratedDocuments(c *gin.Context) {
	results, err := models.GetGeneratedDocuments(c.Request.Context(), queryInt(c, "template_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
