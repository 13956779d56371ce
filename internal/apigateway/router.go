// Package apigateway wires the HTTP surface: public screening routes and the
// authenticated admin surface.
package apigateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"literacy-screening-platform/backend/internal/auth"
	"literacy-screening-platform/backend/internal/contentsource"
	"literacy-screening-platform/backend/internal/sessionmanagement"
)

// SetupRouter initializes the main Gin router.
func SetupRouter(service *sessionmanagement.Service, content *contentsource.Provider) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes (e.g., login)
	authRoutes := router.Group("/auth")
	{
		// auth.LoadAdminCredentials() must run at application startup.
		authRoutes.POST("/login", auth.LoginHandler)
		authRoutes.POST("/logout", auth.LogoutHandler)
	}

	// Screening routes used by the child-facing client.
	screening := router.Group("/screening")
	{
		screening.GET("/levels/:level/items", content.ItemsHandler)

		sessions := screening.Group("/sessions")
		{
			sessions.POST("", service.StartSessionHandler)
			sessions.GET("/:id", service.GetSessionHandler)
			sessions.POST("/:id/items", service.SubmitItemHandler)
			sessions.GET("/:id/stream", service.StreamItemHandler)
			sessions.POST("/:id/level-complete", service.CompleteLevelHandler)
			sessions.POST("/:id/finish", service.FinishSessionHandler)
		}
	}

	// Authenticated admin surface.
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(auth.AuthMiddleware())
	{
		adminRoutes.GET("/sessions", service.ListSessionsHandler)
	}

	return router
}
