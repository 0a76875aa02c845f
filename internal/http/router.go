package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/covers"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/admins"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/extraction"
	"github.com/mrlokans/librarian/internal/metadata"
)

// RouterConfig carries all router dependencies, improving testability and
// reducing parameter count.
type RouterConfig struct {
	Database  *database.Database
	Books     *books.Repository
	Users     *users.Repository
	Admins    *admins.Repository
	Engine    *circulation.Engine
	Extractor *extraction.Extractor
	Metadata  *metadata.OpenLibraryClient
	Covers    *covers.Store

	JWTSecret   string
	TokenExpiry time.Duration
	Version     string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Database, cfg.Version)
	authController := NewAuthController(cfg.Admins, cfg.JWTSecret, cfg.TokenExpiry)
	booksController := NewBooksController(cfg.Books, cfg.Extractor)
	usersController := NewUsersController(cfg.Users)
	loansController := NewLoansController(cfg.Engine)
	adminsController := NewAdminsController(cfg.Admins)
	statsController := NewStatsController(cfg.Books, cfg.Users, cfg.Engine)
	coversController := NewCoversController(cfg.Books, cfg.Covers)

	// Health endpoints
	router.GET("/health", healthController.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Uploaded cover images are served as static files
	if cfg.Covers != nil {
		router.Static("/covers", cfg.Covers.Dir())
	}

	// Auth endpoints
	router.POST("/api/auth/login", authController.Login)
	router.POST("/api/auth/setup-admin", authController.SetupAdmin)

	api := router.Group("/api", auth.Middleware(cfg.JWTSecret))

	// Books
	api.POST("/books", booksController.CreateBook)
	api.GET("/books", booksController.GetAllBooks)
	api.GET("/books/resolve", booksController.ResolveCode)
	api.GET("/books/:id", booksController.GetBook)
	api.PUT("/books/:id", booksController.UpdateBook)
	api.DELETE("/books/:id", booksController.DeleteBook)
	api.GET("/books/:id/qr", booksController.GetBookQR)
	api.POST("/books/:id/cover", coversController.UploadCover)
	api.POST("/books/analyze", booksController.AnalyzeCover)
	if cfg.Metadata != nil {
		metadataController := NewMetadataController(cfg.Metadata)
		api.GET("/books/lookup", metadataController.LookupISBN)
	}

	// Users
	api.POST("/users", usersController.CreateUser)
	api.GET("/users", usersController.GetAllUsers)
	api.GET("/users/:id", usersController.GetUser)
	api.PUT("/users/:id", usersController.UpdateUser)
	api.DELETE("/users/:id", usersController.DeleteUser)
	api.GET("/users/:id/loans", loansController.GetUserLoans)

	// Loans
	api.POST("/loans", loansController.Checkout)
	api.GET("/loans", loansController.GetAllLoans)
	api.PUT("/loans/:id/return", loansController.ReturnLoan)

	// Admins
	api.POST("/admins", adminsController.CreateAdmin)
	api.GET("/admins", adminsController.GetAllAdmins)
	api.GET("/admins/:id", adminsController.GetAdmin)
	api.PUT("/admins/:id", adminsController.UpdateAdmin)
	api.DELETE("/admins/:id", adminsController.DeleteAdmin)

	// Stats
	api.GET("/stats", statsController.GetStats)

	return router
}
