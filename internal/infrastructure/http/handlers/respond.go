// Package handlers provides the JSON API handlers for the nutrition core
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/platewise/v1/pkg/errors"
)

// respondError writes the structured error response for err, mapping
// anything that is not already an AppError to an internal error.
func respondError(c *gin.Context, err error) {
	appErr := errors.Wrap(err, "request failed")
	c.Error(err) // nolint:errcheck
	c.JSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, c.GetString("request_id")))
}

// respondBadRequest writes a field-level input rejection.
func respondBadRequest(c *gin.Context, message string) {
	appErr := errors.NewBadRequestError(message)
	c.JSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, c.GetString("request_id")))
}
