package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
)

type StatsController struct {
	books  *books.Repository
	users  *users.Repository
	engine *circulation.Engine
}

func NewStatsController(booksRepo *books.Repository, usersRepo *users.Repository, engine *circulation.Engine) *StatsController {
	return &StatsController{books: booksRepo, users: usersRepo, engine: engine}
}

// GetStats serves the dashboard counters.
func (controller *StatsController) GetStats(c *gin.Context) {
	totalBooks, err := controller.books.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	totalUsers, err := controller.users.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	activeLoans, err := controller.engine.CountOpenLoans()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	overdueLoans, err := controller.engine.CountOverdueLoans(time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_books":   totalBooks,
		"total_users":   totalUsers,
		"active_loans":  activeLoans,
		"overdue_loans": overdueLoans,
	})
}
