package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-gonic/gin"
)

// UploadImage accepts multipart form data: "file" plus reference_type and
// reference_id fields. A thumbnail is generated server side.
func UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	referenceType := c.PostForm("reference_type")
	if referenceType == "" {
		referenceType = models.ImageRefIncoming
	}
	referenceId := postFormInt(c, "reference_id")

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	image, err := models.UploadImage(ctx, referenceType, referenceId,
		fileHeader.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}

	workflow.RecordAudit(ctx, "image", image.ID, "CREATE", nil,
		workflow.ResolveActor(ctx, ""))

	c.JSON(http.StatusCreated, image)
}

func ListImages(c *gin.Context) {
	results, err := models.GetImagesByReference(c.Request.Context(),
		c.Query("reference_type"), queryInt(c, "reference_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func DeleteImage(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	image, err := models.DeleteImage(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	workflow.RecordAudit(ctx, "image", id, "DELETE", nil,
		workflow.ResolveActor(ctx, ""))

	c.JSON(http.StatusOK, image)
}

func UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	referenceType := c.PostForm("reference_type")
	if referenceType == "" {
		referenceType = models.ImageRefIncoming
	}
	referenceId := postFormInt(c, "reference_id")

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	document, err := models.UploadDocument(ctx, referenceType, referenceId,
		fileHeader.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}

	workflow.RecordAudit(ctx, "document", document.ID, "CREATE", nil,
		workflow.ResolveActor(ctx, ""))

	c.JSON(http.StatusCreated, document)
}

func ListDocuments(c *gin.Context) {
	results, err := models.GetDocumentsByReference(c.Request.Context(),
		c.Query("reference_type"), queryInt(c, "reference_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func DeleteDocument(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	document, err := models.DeleteDocument(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	workflow.RecordAudit(ctx, "document", id, "DELETE", nil,
		workflow.ResolveActor(ctx, ""))

	c.JSON(http.StatusOK, document)
}
