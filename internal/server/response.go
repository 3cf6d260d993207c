package server

import (
	"net/http"

	"github.com/blockcanvas/indy/internal/errors"
	"github.com/gin-gonic/gin"
)

// ErrorBody is the error envelope of every non-2xx response. Error is a plain
// string so cms.Client can surface it.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorBody{Error: msg, Code: code})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch errors.GetType(err) {
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound, "not_found"
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest, "invalid_request"
	case errors.ErrorTypeParse:
		return http.StatusBadRequest, "parse_error"
	case errors.ErrorTypeExternal:
		return http.StatusBadGateway, "upstream_error"
	case errors.ErrorTypeDatabase:
		return http.StatusInternalServerError, "storage_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondErr(c *gin.Context, err error) {
	status, code := statusFor(err)
	respondError(c, status, code, err)
}
