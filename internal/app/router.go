package app

import (
	"exam_sim_backend/docs"
	"exam_sim_backend/internal/config"
	"exam_sim_backend/internal/middleware"
	"exam_sim_backend/internal/model"
	"exam_sim_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)

		// 学生作答
		authGroup.POST("/simulations/:id/attempts", c.attempt.Start)
		authGroup.PUT("/attempts/:id/checkpoint", c.attempt.Checkpoint)
		authGroup.POST("/attempts/:id/submit", c.attempt.Submit)
		authGroup.GET("/results", c.attempt.ListMyResults)
		authGroup.GET("/results/:id", c.attempt.GetResult)
		authGroup.POST("/results/:id/self-correct", c.grading.SelfCorrect)

		// 排行榜
		authGroup.GET("/simulations/:id/leaderboard", c.leaderboard.Leaderboard)

		// 教师端
		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("/simulations", c.simulation.CreateSimulation)
			teacher.GET("/simulations", c.simulation.ListSimulations)
			teacher.GET("/simulations/:id", c.simulation.GetSimulation)
			teacher.PUT("/simulations/:id/publish", c.simulation.Publish)
			teacher.DELETE("/simulations/:id", c.simulation.DeleteSimulation)
			teacher.POST("/simulations/:id/questions", c.simulation.AddQuestion)
			teacher.DELETE("/questions/:id", c.simulation.DeleteQuestion)
			teacher.GET("/simulations/:id/assignments", c.assignment.ListAssignments)
			teacher.GET("/simulations/:id/pending", c.grading.PendingSubmissions)

			teacher.POST("/assignments", c.assignment.CreateAssignment)
			teacher.PUT("/assignments/:id/close", c.assignment.CloseAssignment)
			teacher.PUT("/assignments/:id/reopen", c.assignment.ReopenAssignment)
			teacher.POST("/assignments/:id/rooms", c.assignment.OpenRoom)
			teacher.PUT("/rooms/:id/start", c.assignment.StartRoom)
			teacher.PUT("/rooms/:id/complete", c.assignment.CompleteRoom)

			teacher.POST("/submissions/validate", c.grading.Validate)
			teacher.GET("/results/:id/submissions", c.grading.SubmissionsForResult)
			teacher.POST("/results/:id/validate", c.grading.ValidateBatch)
		}
	}
}
