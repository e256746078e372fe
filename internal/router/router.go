package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/taskboard/backend/api/handler"
)

type Handlers struct {
	Auth         *apiHandler.AuthHandler
	User         *apiHandler.UserHandler
	Task         *apiHandler.TaskHandler
	Notification *apiHandler.NotificationHandler
	Stream       *apiHandler.StreamHandler
	Health       *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)

	// Protected routes
	r.GET("/api/v1/users/me", authMiddleware(handlers.User.Me))
	r.GET("/api/v1/users", authMiddleware(handlers.User.ListUsers))

	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.PATCH("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	r.GET("/api/v1/notifications", authMiddleware(handlers.Notification.GetNotifications))
	r.PATCH("/api/v1/notifications/read-all", authMiddleware(handlers.Notification.MarkAllRead))
	r.PATCH("/api/v1/notifications/{id}/read", authMiddleware(handlers.Notification.MarkRead))
	r.DELETE("/api/v1/notifications/{id}", authMiddleware(handlers.Notification.DeleteNotification))

	// Live event stream
	r.GET("/api/v1/events", authMiddleware(handlers.Stream.Events))

	return r
}
