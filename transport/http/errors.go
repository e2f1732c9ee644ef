package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/gatekeeper/core"
)

// statusFor maps a classified error to its HTTP status.
func statusFor(err error) int {
	switch core.CodeOf(err) {
	case core.CodeInvalidCredentials, core.CodeInvalidInput, core.CodeConflict:
		return http.StatusBadRequest
	case core.CodeInvalidToken, core.CodeTokenRevoked, core.CodeAuthorizationMismatch:
		return http.StatusForbidden
	case core.CodeRateLimited:
		if core.ReasonOf(err) == core.ReasonAlreadyPending {
			return http.StatusBadRequest
		}
		return http.StatusForbidden
	case core.CodeNotFound:
		return http.StatusNotFound
	case core.CodeUnauthenticated:
		return http.StatusUnauthorized
	case core.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{"detail": detailFor(err, status)})
}
