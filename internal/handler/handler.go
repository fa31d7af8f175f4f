package handler

import (
	"net/http"

	"paintpos/pkg/apperror"
	"paintpos/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto the HTTP response. Business errors
// carry their own status and machine-readable code; everything else is a 500
// with the detail kept out of the payload.
func writeError(c *gin.Context, err error) {
	if appErr, ok := apperror.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, response.BusinessError(appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details))
		return
	}
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal server error"))
}

// currentUserID returns the authenticated user's id placed in the context by
// the auth middleware.
func currentUserID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)
	return userIDStr
}
