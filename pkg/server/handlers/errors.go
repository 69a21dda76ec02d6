package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aerolex/aerolex/pkg/server/dto"
	"github.com/aerolex/aerolex/pkg/types"
)

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var (
		notFound    *types.NotFoundError
		invalid     *types.InvalidInputError
		conflict    *types.ConflictError
		unavailable *types.RetrievalUnavailableError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes a JSON error response for an engine error.
func abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	c.JSON(code, dto.ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
		Code:    code,
	})
}

// abortBadRequest writes a 400 for request validation failures.
func abortBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Bad Request",
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	})
}
