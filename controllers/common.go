package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom binding rules. Call once at startup.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("cabinetloc", func(fl validator.FieldLevel) bool {
			_, _, err := models.NormalizeCabinetLocation(fl.Field().String())
			return err == nil
		})
	}
}

// respondError maps domain error kinds onto HTTP statuses. Conflicts carry
// their structured detail so the UI can render an override prompt or the
// shortage amounts.
func respondError(c *gin.Context, err error) {
	var stockErr *utils.InsufficientStockError
	var slotErr *utils.SlotConflictError
	var locErr *utils.InvalidLocationError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorSequenceExhausted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":       stockErr.Error(),
			"part_number": stockErr.PartNumber,
			"current":     stockErr.Current,
			"requested":   stockErr.Requested,
		})
	case errors.As(err, &slotErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":                slotErr.Error(),
			"column":               slotErr.Column,
			"row":                  slotErr.Row,
			"occupant_part_number": slotErr.OccupantPartNumber,
			"occupant_part_name":   slotErr.OccupantPartName,
		})
	case errors.As(err, &locErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": locErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func respondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
}

func paramId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

func postFormInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.PostForm(name))
	if err != nil {
		return 0
	}
	return v
}
