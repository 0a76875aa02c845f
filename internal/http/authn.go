package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database/admins"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	repo        *admins.Repository
	jwtSecret   string
	tokenExpiry time.Duration
}

func NewAuthController(repo *admins.Repository, jwtSecret string, tokenExpiry time.Duration) *AuthController {
	return &AuthController{repo: repo, jwtSecret: jwtSecret, tokenExpiry: tokenExpiry}
}

// Login exchanges admin credentials for a bearer token.
func (controller *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := controller.repo.Authenticate(input.Email, input.Password)
	if err != nil {
		if errors.Is(err, admins.ErrAdminNotFound) || errors.Is(err, auth.ErrInvalidPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token, err := auth.GenerateToken(admin.ID, admin.Email, admin.IsSuperadmin, controller.jwtSecret, controller.tokenExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// SetupAdmin creates the first (super)admin account. It only works while no
// admin exists; afterwards the authenticated admin endpoints take over.
func (controller *AuthController) SetupAdmin(c *gin.Context) {
	count, err := controller.repo.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "admins already exist, use the admin panel to add more"})
		return
	}

	var input AdminCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := controller.repo.Create(input.Email, input.Name, input.Password, true)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}
