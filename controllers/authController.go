package controllers

import (
	"net/http"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	info, err := models.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	models.LogLogin(c.Request.Context(), 0, info.Name, c.ClientIP(),
		c.Request.UserAgent(), info.Token)

	c.JSON(http.StatusOK, info)
}

func Logout(c *gin.Context) {
	ctx := c.Request.Context()

	if token, ok := utils.GetTokenFromContext(ctx); ok {
		models.LogLogout(ctx, token, c.ClientIP())
	}

	ok, err := models.Logout(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// Me returns the user bound to the current session token.
func Me(c *gin.Context) {
	ctx := c.Request.Context()
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}
	user, err := models.GetUserByUsername(ctx, username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func CreateUser(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := workflow.CreateUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func UpdateUser(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := workflow.UpdateUser(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func DeleteUser(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	user, err := workflow.DeleteUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func GetUser(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	user, err := models.GetUserModel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func ListUsers(c *gin.Context) {
	users, err := models.GetAllUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
