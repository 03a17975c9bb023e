package routes

import (
	"ops-dashboard-api/internal/handlers"
	"ops-dashboard-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Handlers are the stateful handler groups the router mounts. The CRUD
// handlers are package functions over the global database.
type Handlers struct {
	GitHub  *handlers.GitHubHandler
	Webhook *handlers.WebhookHandler
	Events  *handlers.EventsHandler
	Logger  *logrus.Logger
}

func SetupRoutes(h Handlers) *gin.Engine {
	logger := h.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// Create a new GIN Router
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestLogging(logger), middleware.Metrics(), middleware.CORS())

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Ops Dashboard API is running",
		})
	})
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := ginRouter.Group("/api")
	{
		// Tasks and their children
		api.GET("/tasks", handlers.GetTasks)
		api.GET("/tasks/stats", handlers.GetTaskStats)
		api.GET("/tasks/:id", handlers.GetTaskByID)
		api.POST("/tasks", handlers.CreateTask)
		api.PATCH("/tasks/:id", handlers.UpdateTask)
		api.PATCH("/tasks/:id/status", handlers.UpdateTaskStatus)
		api.DELETE("/tasks/:id", handlers.DeleteTask)

		api.GET("/tasks/:id/checklist", handlers.GetChecklist)
		api.POST("/tasks/:id/checklist", handlers.CreateChecklistItem)
		api.PATCH("/tasks/:id/checklist/:itemId", handlers.ToggleChecklistItem)
		api.DELETE("/tasks/:id/checklist/:itemId", handlers.DeleteChecklistItem)

		api.GET("/tasks/:id/comments", handlers.GetComments)
		api.POST("/tasks/:id/comments", handlers.CreateComment)

		// Team and business tracking
		api.GET("/team", handlers.GetTeam)

		api.GET("/pipeline", handlers.GetPipelineItems)
		api.POST("/pipeline", handlers.CreatePipelineItem)
		api.PATCH("/pipeline/:id", handlers.UpdatePipelineItem)
		api.DELETE("/pipeline/:id", handlers.DeletePipelineItem)

		api.GET("/reports", handlers.GetReports)
		api.POST("/reports", handlers.CreateReport)

		api.GET("/blog", handlers.GetBlogPosts)
		api.POST("/blog", handlers.CreateBlogPost)
		api.GET("/revenue", handlers.GetRevenues)
		api.POST("/revenue", handlers.CreateRevenue)
	}

	if h.GitHub != nil {
		api.GET("/github", h.GitHub.Get)
		api.GET("/github/status", h.GitHub.Status)
	}
	if h.Webhook != nil {
		api.POST("/webhooks/github", h.Webhook.Receive)
		api.GET("/webhooks/github", h.Webhook.List)
	}
	if h.Events != nil {
		api.GET("/events/github", h.Events.Stream)
		ginRouter.GET("/ws/events", h.Events.WebSocket)
	}

	return ginRouter
}
