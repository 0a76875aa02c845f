package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/metadata"
)

type MetadataController struct {
	client *metadata.OpenLibraryClient
}

func NewMetadataController(client *metadata.OpenLibraryClient) *MetadataController {
	return &MetadataController{client: client}
}

// LookupISBN returns a catalogue draft for an ISBN, fetched from OpenLibrary.
// Like cover analysis, the result is not persisted until the operator
// confirms it.
func (controller *MetadataController) LookupISBN(c *gin.Context) {
	isbn := c.Query("isbn")
	if isbn == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isbn query parameter is required"})
		return
	}

	draft, err := controller.client.LookupISBN(c.Request.Context(), isbn)
	switch {
	case errors.Is(err, metadata.ErrInvalidISBN):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, metadata.ErrISBNNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, draft)
	}
}
