package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database/admins"
)

type AdminCreateInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AdminUpdateInput struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

type AdminsController struct {
	repo *admins.Repository
}

func NewAdminsController(repo *admins.Repository) *AdminsController {
	return &AdminsController{repo: repo}
}

func (controller *AdminsController) CreateAdmin(c *gin.Context) {
	var input AdminCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := controller.repo.Create(input.Email, input.Name, input.Password, false)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

func (controller *AdminsController) GetAllAdmins(c *gin.Context) {
	offset, limit := parsePagination(c)
	all, err := controller.repo.List(offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": all, "count": len(all)})
}

func (controller *AdminsController) GetAdmin(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	admin, err := controller.repo.GetByID(id)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, admin)
}

func (controller *AdminsController) UpdateAdmin(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input AdminUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := controller.repo.Update(id, admins.UpdateInput{
		Email:    input.Email,
		Name:     input.Name,
		Password: input.Password,
	})
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, admin)
}

func (controller *AdminsController) DeleteAdmin(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := controller.repo.Delete(id); err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func writeAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, admins.ErrAdminNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, admins.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, admins.ErrSuperadminProtected):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, admins.ErrEmailRequired),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
