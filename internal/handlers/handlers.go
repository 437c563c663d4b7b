package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"libris-backend/internal/models"
	"libris-backend/internal/repository"
	"libris-backend/internal/services"
)

type Handler struct {
	books    *repository.BookRepository
	checkout *services.CheckoutService
}

func NewHandler(books *repository.BookRepository, checkout *services.CheckoutService) *Handler {
	return &Handler{
		books:    books,
		checkout: checkout,
	}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "libris-backend",
	})
}

// CreateBook adds a book to the catalog.
func (h *Handler) CreateBook(c *gin.Context) {
	var input models.CreateBookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	book, err := h.books.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, book)
}

// GetBooks returns one page of the catalog, newest first.
func (h *Handler) GetBooks(c *gin.Context) {
	limit, offset := parsePagination(c)

	books, total, err := h.books.FindAll(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books":  books,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetBook returns a single book by id.
func (h *Handler) GetBook(c *gin.Context) {
	book, err := h.books.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if book == nil {
		respondError(c, models.NewNotFoundError("Book"))
		return
	}

	c.JSON(http.StatusOK, book)
}

// UpdateBook applies a partial update to a book. Only fields present in the
// body are touched.
func (h *Handler) UpdateBook(c *gin.Context) {
	var req struct {
		Title         *string    `json:"title"`
		Author        *string    `json:"author"`
		ISBN          *string    `json:"isbn"`
		PublishedYear *int       `json:"published_year"`
		Status        *string    `json:"status"`
		CheckedOutAt  *time.Time `json:"checked_out_at"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	patch := models.BookPatch{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		PublishedYear: req.PublishedYear,
	}
	if req.Status != nil {
		status := models.BookStatus(*req.Status)
		if status != models.StatusAvailable && status != models.StatusCheckedOut {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid status value",
			})
			return
		}
		patch.Status = &status
	}
	if req.CheckedOutAt != nil {
		patch.CheckedOutAt = &sql.NullTime{Time: *req.CheckedOutAt, Valid: true}
	}

	book, err := h.books.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	if book == nil {
		respondError(c, models.NewNotFoundError("Book"))
		return
	}

	c.JSON(http.StatusOK, book)
}

// CheckoutBook checks a book out.
func (h *Handler) CheckoutBook(c *gin.Context) {
	book, err := h.checkout.Checkout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

// ReturnBook returns a checked-out book.
func (h *Handler) ReturnBook(c *gin.Context) {
	book, err := h.checkout.Return(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

// GetBookHistory returns one page of a book's checkout trail, newest first.
func (h *Handler) GetBookHistory(c *gin.Context) {
	limit, offset := parsePagination(c)

	entries, total, err := h.checkout.GetHistory(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// parsePagination reads limit/offset query params, falling back to the
// repository defaults on absent or malformed values.
func parsePagination(c *gin.Context) (int, int) {
	limit := repository.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}

	return limit, offset
}

// respondError translates a domain error into its HTTP shape. Internal
// detail stays in the log, never in the response body.
func respondError(c *gin.Context, err error) {
	var domainErr *models.DomainError
	if !errors.As(err, &domainErr) {
		log.Printf("unhandled error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	switch domainErr.Code {
	case models.ErrCodeValidation:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": domainErr.Message,
			"field": domainErr.Field,
		})
	case models.ErrCodeNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"error": domainErr.Message,
		})
	case models.ErrCodeConflict:
		c.JSON(http.StatusConflict, gin.H{
			"error": domainErr.Message,
		})
	default:
		log.Printf("internal error: %v", domainErr)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
