package http

import (
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/service"
)

// RouterConfig configures the HTTP boundary
type RouterConfig struct {
	Logger logr.Logger
	// SecureCookies marks token cookies Secure; enable behind TLS
	SecureCookies bool
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	handlers := NewAuthHandlers(authService, logger, cfg.SecureCookies)

	api := router.Group("/api")

	// User routes
	user := api.Group("/user")
	{
		user.POST("/create", handlers.CreateUser)
		user.GET("/:public_id", AuthMiddleware(core.AudienceAccess), handlers.ReadUser)
		user.PUT("/:public_id/update", AuthMiddleware(core.AudienceAccess), handlers.UpdateUser)
		user.DELETE("/:public_id/delete", AuthMiddleware(core.AudienceRefresh), handlers.DeleteUser)
		user.PUT("/:public_id/reset-password", AuthMiddleware(core.AudienceAccess), handlers.ResetPassword)
		user.GET("/:public_id/reset-password", handlers.ConfirmResetPassword)
	}

	// Auth routes
	auth := api.Group("/auth")
	{
		auth.POST("/login", handlers.Login)
		auth.GET("/verification", handlers.Verify)
		auth.POST("/refresh-token", AuthMiddleware(core.AudienceRefresh), handlers.RefreshToken)
	}

	return router
}
