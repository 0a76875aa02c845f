package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/covers"
	"github.com/mrlokans/librarian/internal/database/books"
)

type CoversController struct {
	repo  *books.Repository
	store *covers.Store
}

func NewCoversController(repo *books.Repository, store *covers.Store) *CoversController {
	return &CoversController{repo: repo, store: store}
}

// UploadCover stores a cover image for the book and points its cover URL at
// the served file.
func (controller *CoversController) UploadCover(c *gin.Context) {
	if controller.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cover storage is not configured"})
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := controller.repo.GetByID(id)
	if err != nil {
		writeBookError(c, err)
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

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	filename, err := controller.store.Save(book.ID, data, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	coverURL := "/covers/" + filename
	if err := controller.repo.SetCoverImageURL(book.ID, coverURL); err != nil {
		writeBookError(c, err)
		return
	}

	book.CoverImageURL = coverURL
	c.JSON(http.StatusOK, book)
}
