package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/circulation"
)

type CheckoutInput struct {
	BookID  uint      `json:"book_id" binding:"required"`
	UserID  uint      `json:"user_id" binding:"required"`
	DueDate time.Time `json:"due_date" binding:"required"`
}

type LoansController struct {
	engine *circulation.Engine
}

func NewLoansController(engine *circulation.Engine) *LoansController {
	return &LoansController{engine: engine}
}

// Checkout creates a loan through the circulation engine; the engine owns
// the availability check and the flag flip.
func (controller *LoansController) Checkout(c *gin.Context) {
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := controller.engine.Checkout(input.BookID, input.UserID, input.DueDate)
	if err != nil {
		writeLoanError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (controller *LoansController) GetAllLoans(c *gin.Context) {
	offset, limit := parsePagination(c)
	all, err := controller.engine.ListLoans(offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": all, "count": len(all)})
}

func (controller *LoansController) ReturnLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	loan, err := controller.engine.Return(id)
	if err != nil {
		writeLoanError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// GetUserLoans lists a user's open loans, the same view the bot serves.
func (controller *LoansController) GetUserLoans(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	loans, err := controller.engine.OpenLoansForUser(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": loans, "count": len(loans)})
}

func writeLoanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, circulation.ErrBookNotFound),
		errors.Is(err, circulation.ErrUserNotFound),
		errors.Is(err, circulation.ErrLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, circulation.ErrBookUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, circulation.ErrDueDateInPast):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
