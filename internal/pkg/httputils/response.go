// Package httputils provides HTTP response helpers shared by handlers.
package httputils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/graphrag/pkg/errors"
)

// Response is the unified API response envelope.
type Response struct {
	// Code is the business error code (0 = success).
	Code int `json:"code"`

	// Message is a human-readable message.
	Message string `json:"message"`

	// Data contains the response payload (nil for errors).
	Data interface{} `json:"data,omitempty"`
}

// WriteResponse writes the response to the client.
// It handles both success and error cases, ensuring a consistent format.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		errno, ok := err.(*errors.Errno)
		if !ok {
			errno = errors.ErrInternal.WithMessage(err.Error())
		}
		c.JSON(errno.HTTPStatus(), &Response{
			Code:    errno.Code,
			Message: errno.MessageEN,
		})
		return
	}

	c.JSON(http.StatusOK, &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}
