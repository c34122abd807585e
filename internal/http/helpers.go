package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/locallibrary/internal/catalog"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context
}

// FormResponse describes a form: its current values and, after a rejected
// submission, one message per invalid field.
type FormResponse struct {
	Form     any               `json:"form"`
	Errors   map[string]string `json:"errors,omitempty"`
	HelpText map[string]string `json:"help_text,omitempty"`
}

// PaginatedResponse wraps one page of a list with its position.
type PaginatedResponse struct {
	Data        any   `json:"data"`
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "not_found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondFormErrors re-presents a rejected form. Like a re-rendered HTML
// form this is a 200: the request was understood, the input was not.
func respondFormErrors(c *gin.Context, form any, fields map[string]string) {
	c.JSON(http.StatusOK, FormResponse{Form: form, Errors: fields})
}

// respondCatalogError maps lifecycle errors onto responses.
func respondCatalogError(c *gin.Context, form any, err error, context string) {
	if verr, ok := catalog.AsValidationError(err); ok {
		respondFormErrors(c, form, verr.Fields)
		return
	}
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, catalog.ErrHasDependents):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "has_dependents"})
	default:
		respondInternalError(c, err, context)
	}
}

// redirectTo answers a successful form submission.
func redirectTo(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

// --- Parameter Parsing ---

// parseIDParam extracts an unsigned integer ID from URL parameters. Object
// IDs that cannot exist are reported as 404, the same as missing ones.
func parseIDParam(c *gin.Context, paramName string, resource string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondNotFound(c, resource)
		return 0, false
	}
	return uint(id), true
}

// parseUUIDParam extracts a UUID from URL parameters, answering 404 for
// malformed values.
func parseUUIDParam(c *gin.Context, paramName string, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		respondNotFound(c, resource)
		return uuid.Nil, false
	}
	return id, true
}

// --- Pagination ---

// respondPage serves page ?page=N of a list. Pages are 1-based; a page
// number that is not a positive integer, or lies past the last page, is a
// 404. An empty list still has one (empty) first page.
func respondPage[T any](c *gin.Context, size int, query func(limit, offset int) ([]T, int64, error), context string) {
	number := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondNotFound(c, "page")
			return
		}
		number = n
	}
	if size <= 0 {
		size = 10
	}

	items, total, err := query(size, (number-1)*size)
	if err != nil {
		respondInternalError(c, err, context)
		return
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	if totalPages == 0 {
		totalPages = 1
	}
	if number > totalPages {
		respondNotFound(c, "page")
		return
	}
	if items == nil {
		items = []T{}
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:        items,
		Total:       total,
		Page:        number,
		PageSize:    size,
		TotalPages:  totalPages,
		HasNext:     number < totalPages,
		HasPrevious: number > 1,
	})
}
