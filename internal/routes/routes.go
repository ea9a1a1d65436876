package routes

import (
	"taskflow/internal/handlers"
	"taskflow/internal/middleware"
	"taskflow/internal/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	auth services.AuthService,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	taskHandler *handlers.TaskHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
) *gin.Engine {

	// ---- public
	r.GET("/health", handlers.Health)
	r.GET("/ws", wsHandler.Connect) // token checked in the handshake

	api := r.Group("/api")

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// ---- protected
	protected := api.Group("")
	protected.Use(middleware.RequireAuth(auth))

	protected.GET("/auth/profile", authHandler.GetProfile)
	protected.PUT("/auth/profile", authHandler.UpdateProfile)

	tasks := protected.Group("/tasks")
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("", taskHandler.GetAll)
		tasks.GET("/my-created", taskHandler.GetMyCreated)
		tasks.GET("/my-assigned", taskHandler.GetMyAssigned)
		tasks.GET("/overdue", taskHandler.GetOverdue)
		tasks.GET("/report", taskHandler.Report)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
	}

	users := protected.Group("/users")
	{
		users.GET("", userHandler.List)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.GetAll)
		notifications.GET("/unread", notificationHandler.GetUnreadCount)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
		notifications.DELETE("", notificationHandler.DeleteAll)
	}

	return r
}
