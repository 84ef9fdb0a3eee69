package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shelfgate/shelfgate/internal/gateway"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data  any   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondDomainError maps an error to its HTTP status via the gateway error
// taxonomy. Internal and upstream failures are logged with their context but
// never exposed to the client verbatim.
func respondDomainError(c *gin.Context, err error, context string) {
	kind := gateway.KindOf(err)
	status := gateway.HTTPStatus(kind)

	switch kind {
	case gateway.KindInternal:
		log.Printf("http: internal error (%s): %v", context, err)
		c.JSON(status, ErrorResponse{Error: "internal server error"})
	case gateway.KindUpstream:
		log.Printf("http: upstream error (%s): %v", context, err)
		c.JSON(status, ErrorResponse{Error: "upstream unavailable"})
	case gateway.KindNotFound:
		c.JSON(status, ErrorResponse{Error: "not found"})
	default:
		c.JSON(status, ErrorResponse{Error: err.Error()})
	}
}

// --- Parameter Parsing ---

// Paging bounds for list endpoints.
const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// parsePaging extracts page/limit query parameters with defaults and bounds.
// Responds with a 400 error and returns false on malformed input.
func parsePaging(c *gin.Context) (page, limit int, ok bool) {
	page, ok = parseQueryInt(c, "page", 0)
	if !ok {
		return 0, 0, false
	}
	limit, ok = parseQueryInt(c, "limit", defaultPageLimit)
	if !ok {
		return 0, 0, false
	}
	if page < 0 || limit < 1 || limit > maxPageLimit {
		respondBadRequest(c, "page must be >= 0 and limit in 1.."+strconv.Itoa(maxPageLimit))
		return 0, 0, false
	}
	return page, limit, true
}

// parseQueryInt extracts an optional integer query parameter.
func parseQueryInt(c *gin.Context, paramName string, fallback int) (int, bool) {
	raw := c.Query(paramName)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return value, true
}

// requireItemID extracts the non-empty item ID path parameter.
func requireItemID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "item id is required")
		return "", false
	}
	return id, true
}
