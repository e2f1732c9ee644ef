package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/layer-3/gatekeeper/core"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	tokenContextKey = "token"
)

// AuthMiddleware extracts the bearer token for audience. The Authorization
// header wins; otherwise the matching cookie is used. Verification of the
// token is left to the service.
func AuthMiddleware(audience core.Audience) gin.HandlerFunc {
	cookie := accessCookie
	if audience == core.AudienceRefresh {
		cookie = refreshCookie
	}

	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(cookie)
		}
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			abortWithError(c, core.ErrUnauthenticated)
			return
		}

		c.Set(tokenContextKey, token)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func tokenFrom(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}

// RequestLogger logs one line per request. Query strings are left out since
// they carry tokens.
func RequestLogger(logger logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
