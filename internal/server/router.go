package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/courseframe/courseframe-backend/internal/handlers"
)

type RouterConfig struct {
	CourseGenHandler  *handlers.CourseGenHandler
	CourseHandler     *handlers.CourseHandler
	InstructorHandler *handlers.InstructorHandler
	SSEHandler        *handlers.SSEHandler
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Generation
		api.POST("/generate/course", cfg.CourseGenHandler.GenerateCourse)
		api.GET("/generate/queue", cfg.CourseGenHandler.Queue)
		api.GET("/generate/:id/status", cfg.CourseGenHandler.GetStatus)
		api.GET("/generate/:id/progress", cfg.CourseGenHandler.GetProgress)
		api.POST("/generate/:id/retry", cfg.CourseGenHandler.Retry)
		api.DELETE("/generate/:id", cfg.CourseGenHandler.Cancel)
		api.GET("/generate/:id/events", cfg.SSEHandler.StreamJob)

		// Assembled courses
		api.GET("/courses/:id", cfg.CourseHandler.Get)

		// Instructor catalog
		api.GET("/instructors", cfg.InstructorHandler.List)
		api.GET("/instructors/:id", cfg.InstructorHandler.Get)
	}

	return router
}
