package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/circulation"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: circulation.KindInvalidInput.String()})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondCirculationError maps a circulation failure to its status code. The
// librarian-facing message is returned as is, except for storage failures
// whose cause is only logged.
func respondCirculationError(c *gin.Context, err error, context string) {
	kind := circulation.KindOf(err)
	switch {
	case kind == circulation.KindInvalidInput:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: kind.String()})
	case kind.IsNotFound():
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: kind.String()})
	case kind.IsConflict():
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: kind.String()})
	default:
		respondInternalError(c, err, context)
	}
}

// StatusFor returns the HTTP status for a circulation error.
func StatusFor(err error) int {
	kind := circulation.KindOf(err)
	switch {
	case err == nil:
		return http.StatusOK
	case kind == circulation.KindInvalidInput:
		return http.StatusBadRequest
	case kind.IsNotFound():
		return http.StatusNotFound
	case kind.IsConflict():
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseBoolQuery reads an optional boolean query parameter.
func parseBoolQuery(c *gin.Context, name string, def bool) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondBadRequest(c, "invalid "+name+": expected true or false")
		return false, false
	}
	return v, true
}

// parsePagination reads limit and offset, clamping limit to [1, 100].
func parsePagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
