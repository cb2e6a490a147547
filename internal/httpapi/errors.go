package httpapi

import (
	"errors"
	"net/http"

	"github.com/eamcap/authcore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgUnauthorized       = "unauthorized"
	msgRateLimited        = "too many requests"
	msgBadRequest         = "invalid request body"
	msgInternal           = "internal server error"
)

// statusFor maps an engine error to a status code and client message.
// An inactive account is reported exactly like bad credentials.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrAccountInactive):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, authcore.ErrInvalidToken),
		errors.Is(err, authcore.ErrUnauthorizedNoSession):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, authcore.ErrDuplicateEmail),
		errors.Is(err, authcore.ErrWeakPassword),
		errors.Is(err, authcore.ErrPasswordTooLong),
		errors.Is(err, authcore.ErrInvalidRole):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, authcore.ErrLoginRateLimited),
		errors.Is(err, authcore.ErrRefreshRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	Error(c, code, msg)
}
