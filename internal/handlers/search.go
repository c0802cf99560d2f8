package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookmarket/internal/repositories"
	"bookmarket/internal/search"
)

const searchResultLimit = 50

// SearchHandler serves free-text listing search backed by the mirror index.
type SearchHandler struct {
	index    search.Index
	bookRepo repositories.BookRepository
}

// NewSearchHandler builds a SearchHandler.
func NewSearchHandler(index search.Index, bookRepo repositories.BookRepository) *SearchHandler {
	return &SearchHandler{index: index, bookRepo: bookRepo}
}

// Search matches q against title/author/description/major and hydrates hits
// from the primary store. An absent or empty q is rejected before the index
// is consulted.
func (h *SearchHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	ids, err := h.index.Search(c.Request.Context(), q, searchResultLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	books, err := h.bookRepo.GetBooksByIDs(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load books"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books})
}
