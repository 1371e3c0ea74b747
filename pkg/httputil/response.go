package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phishsentinel/phishsentinel-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   bool        `json:"error"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page       int `json:"current_page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// RespondWithData sends a success response carrying data
func RespondWithData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Data:  data,
		Error: false,
	})
}

// RespondWithMessage sends a success response carrying a message only
func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{
		Message: message,
		Error:   false,
	})
}

// RespondWithError sends an error response. Application errors map to their
// own status codes, everything else is treated as internal.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := err.(*errors.AppError); ok {
		status = appErr.StatusCode()
		message = appErr.Message
	}

	c.JSON(status, Response{
		Message: message,
		Error:   true,
	})
}
