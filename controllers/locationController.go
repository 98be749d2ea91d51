package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/models"
	"github.com/gin-gonic/gin"
)

func ListLocations(c *gin.Context) {
	results, err := models.GetAllLocations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func GetLocationByIncomingId(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	location, err := models.GetLocationByIncomingId(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if location == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, location)
}

func GetLocationByCode(c *gin.Context) {
	location, err := models.GetLocationByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

// SaveLocationByCode upserts a code-keyed row for the legacy addressing
// scheme still used by the map screen.
func SaveLocationByCode(c *gin.Context) {
	var input models.NewPartLocation
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	location, err := models.SaveOrUpdateLocationByCode(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

func DeleteLocationByCode(c *gin.Context) {
	location, err := models.DeleteLocationByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

// CheckCabinetSlot reports whether a coordinate is free, for the form's
// pre-submit validation.
func CheckCabinetSlot(c *gin.Context) {
	col, row, err := models.NormalizeCabinetLocation(c.Query("slot"))
	if err != nil {
		respondError(c, err)
		return
	}

	occupant, err := models.GetCabinetOccupant(config.GetDB(), c.Request.Context(), col, row)
	if err != nil {
		respondError(c, err)
		return
	}
	if occupant == nil {
		c.JSON(http.StatusOK, gin.H{"slot": col, "row": row, "occupied": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slot":                 col,
		"row":                  row,
		"occupied":             true,
		"occupant_part_number": occupant.PartNumber,
		"occupant_part_name":   occupant.PartName,
	})
}
