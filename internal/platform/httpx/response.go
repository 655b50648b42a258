package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/db"
	"rental-backend/internal/platform/logging"
)

// Envelope is the uniform response body.
type Envelope struct {
	Success bool        `json:"success"`
	Code    apierr.Code `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    any         `json:"data,omitempty"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail renders err. Internal failures are logged and never echoed to the client.
func Fail(c *gin.Context, err error) {
	status, body := render(c, err)
	c.JSON(status, body)
}

// Abort is Fail for middleware: the remaining handlers are skipped.
func Abort(c *gin.Context, err error) {
	status, body := render(c, err)
	c.AbortWithStatusJSON(status, body)
}

// BadRequest is the binding failure shortcut.
func BadRequest(c *gin.Context, msg string) {
	Fail(c, apierr.Invalid(msg))
}

func render(c *gin.Context, err error) (int, Envelope) {
	var api *apierr.APIError
	switch {
	case errors.Is(err, db.ErrTransient):
		logging.FromContext(c.Request.Context()).Warn("transient store failure", zap.Error(err))
		return http.StatusInternalServerError, Envelope{
			Code:    apierr.CodeTransient,
			Message: "temporarily unavailable, retry the request",
		}
	case errors.As(err, &api) && apierr.Status(err) != http.StatusInternalServerError:
		return apierr.Status(err), Envelope{Code: api.Code, Message: api.Message}
	default:
		logging.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
		return http.StatusInternalServerError, Envelope{
			Code:    apierr.CodeInternal,
			Message: "internal error",
		}
	}
}

// Page query helpers (limit/offset/order), 既定値は limit=50, offset=0, order=desc
func ParseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

// ParseID parses a positive decimal path parameter.
func ParseID(c *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		BadRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}
