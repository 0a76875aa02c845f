package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/extraction"
	"github.com/mrlokans/librarian/internal/identify"
)

// maxCoverUploadBytes caps cover uploads at 10 MiB.
const maxCoverUploadBytes = 10 << 20

type BookInput struct {
	Title         string  `json:"title" binding:"required"`
	Author        string  `json:"author" binding:"required"`
	ISBN          *string `json:"isbn"`
	CoverImageURL string  `json:"cover_image_url"`
	Summary       string  `json:"summary"`
}

type BooksController struct {
	repo      *books.Repository
	extractor *extraction.Extractor // nil when the vision model is not configured
}

func NewBooksController(repo *books.Repository, extractor *extraction.Extractor) *BooksController {
	return &BooksController{repo: repo, extractor: extractor}
}

func (controller *BooksController) CreateBook(c *gin.Context) {
	var input BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book := &entities.Book{
		Title:         input.Title,
		Author:        input.Author,
		ISBN:          input.ISBN,
		CoverImageURL: input.CoverImageURL,
		Summary:       input.Summary,
		IsAvailable:   true,
	}
	if err := controller.repo.Create(book); err != nil {
		writeBookError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (controller *BooksController) GetAllBooks(c *gin.Context) {
	offset, limit := parsePagination(c)
	all, err := controller.repo.List(offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": all, "count": len(all)})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := controller.repo.GetByID(id)
	if err != nil {
		writeBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (controller *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := controller.repo.Update(id, &entities.Book{
		Title:         input.Title,
		Author:        input.Author,
		ISBN:          input.ISBN,
		CoverImageURL: input.CoverImageURL,
		Summary:       input.Summary,
	})
	if err != nil {
		writeBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (controller *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := controller.repo.Delete(id); err != nil {
		writeBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// GetBookQR renders the book's identification code as a printable PNG.
func (controller *BooksController) GetBookQR(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := controller.repo.GetByID(id)
	if err != nil {
		writeBookError(c, err)
		return
	}

	payload := book.CodePayload
	if payload == "" {
		payload = identify.MintPayload(book.ID)
	}
	png, err := identify.RenderPNG(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ResolveCode maps a scanned code payload back to its book. Invalid or
// unknown payloads are client errors, never crashes.
func (controller *BooksController) ResolveCode(c *gin.Context) {
	payload := c.Query("payload")
	id, err := identify.Resolve(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, err := controller.repo.GetByID(id)
	if err != nil {
		writeBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// AnalyzeCover runs the uploaded cover image through the extraction pipeline
// and returns the unpersisted draft for operator confirmation.
func (controller *BooksController) AnalyzeCover(c *gin.Context) {
	if controller.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": extraction.ErrMissingAPIKey.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	if fileHeader.Size > maxCoverUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cover image is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(imageData)
	}

	draft, err := controller.extractor.Extract(c.Request.Context(), imageData, mimeType)
	if err != nil {
		var extractionErr *extraction.Error
		if errors.As(err, &extractionErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": extractionErr.Raw})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, draft)
}

func writeBookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, books.ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, books.ErrDuplicateISBN):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, books.ErrTitleRequired), errors.Is(err, books.ErrAuthorRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
