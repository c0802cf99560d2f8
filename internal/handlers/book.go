package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bookmarket/internal/middleware"
	"bookmarket/internal/models"
	"bookmarket/internal/repositories"
	"bookmarket/internal/telemetry"
)

// BookHandler manages listing endpoints.
type BookHandler struct {
	bookRepo repositories.BookRepository
	audit    *telemetry.AuditEmitter
}

// NewBookHandler builds a BookHandler.
func NewBookHandler(bookRepo repositories.BookRepository, audit *telemetry.AuditEmitter) *BookHandler {
	return &BookHandler{bookRepo: bookRepo, audit: audit}
}

// CreateBook registers a listing for the caller. The search index is brought
// up to date asynchronously via the outbox; indexing never blocks or fails
// this request.
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req struct {
		Title       string   `json:"title" binding:"required"`
		Author      string   `json:"author" binding:"required"`
		Price       *int64   `json:"price" binding:"required"`
		Description string   `json:"description"`
		Major       string   `json:"major"`
		Status      string   `json:"status"`
		ImageURLs   []string `json:"image_urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Title) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must be at least 2 characters"})
		return
	}
	if len(req.Author) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author must be at least 2 characters"})
		return
	}
	if *req.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return
	}
	status := req.Status
	if status == "" {
		status = models.StatusForSale
	}
	if !validStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	sellerID := c.GetString(middleware.UserIDKey)
	book, err := h.bookRepo.CreateBook(c.Request.Context(), models.Book{
		Title:       req.Title,
		Author:      req.Author,
		Price:       *req.Price,
		Description: req.Description,
		Major:       req.Major,
		Status:      status,
		SellerID:    sellerID,
	}, req.ImageURLs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create book"})
		return
	}

	h.audit.Emit(c.Request.Context(), "info",
		fmt.Sprintf("book %d listed", book.ID),
		requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, book)
}

// ListBooks returns every listing, newest first.
func (h *BookHandler) ListBooks(c *gin.Context) {
	books, err := h.bookRepo.ListBooks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load books"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

// GetBook returns one listing.
func (h *BookHandler) GetBook(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	book, err := h.bookRepo.GetBook(c.Request.Context(), bookID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrBookNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "book not found"})
		return
	}
	c.JSON(http.StatusOK, book)
}

// UpdateBook applies a partial update. Sellers only; status transitions are
// advisory and not guarded.
func (h *BookHandler) UpdateBook(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	book, err := h.bookRepo.GetBook(c.Request.Context(), bookID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrBookNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "book not found"})
		return
	}
	if book.SellerID != c.GetString(middleware.UserIDKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the seller can modify a listing"})
		return
	}

	var patch models.BookPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if patch.Title != nil && len(*patch.Title) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must be at least 2 characters"})
		return
	}
	if patch.Author != nil && len(*patch.Author) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author must be at least 2 characters"})
		return
	}
	if patch.Price != nil && *patch.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return
	}
	if patch.Status != nil && !validStatus(*patch.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	updated, err := h.bookRepo.UpdateBook(c.Request.Context(), bookID, patch)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrBookNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not update book"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteBook removes a listing. Sellers only.
func (h *BookHandler) DeleteBook(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	book, err := h.bookRepo.GetBook(c.Request.Context(), bookID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrBookNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "book not found"})
		return
	}
	if book.SellerID != c.GetString(middleware.UserIDKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the seller can delete a listing"})
		return
	}

	if err := h.bookRepo.DeleteBook(c.Request.Context(), bookID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrBookNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete book"})
		return
	}
	c.Status(http.StatusNoContent)
}

// MyBooks returns the caller's own listings, newest first.
func (h *BookHandler) MyBooks(c *gin.Context) {
	sellerID := c.GetString(middleware.UserIDKey)
	books, err := h.bookRepo.ListBooksBySeller(c.Request.Context(), sellerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load books"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

func parseBookID(c *gin.Context) (int64, bool) {
	bookID, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return 0, false
	}
	return bookID, true
}

func validStatus(status string) bool {
	switch status {
	case models.StatusForSale, models.StatusInProgress, models.StatusCompleted:
		return true
	}
	return false
}
