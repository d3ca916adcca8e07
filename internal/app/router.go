package app

import (
	"mathdiag_backend/internal/config"
	"mathdiag_backend/internal/middleware"
	"mathdiag_backend/internal/model"
	"mathdiag_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/diagnostic/forms", c.form.ListForms)
		public.GET("/diagnostic/forms/:id", c.form.GetForm)
		public.GET("/misconceptions", c.misconception.List)
		public.GET("/misconceptions/:tag", c.misconception.GetByTag)
	}

	// 学习者会话路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		sessions := authGroup.Group("/diagnostic/sessions")
		{
			sessions.POST("", c.diagnostic.StartSession)
			sessions.GET("/:id", c.diagnostic.GetSession)
			sessions.POST("/:id/responses", c.diagnostic.SubmitResponse)
			sessions.POST("/:id/abandon", c.diagnostic.AbandonSession)
			sessions.GET("/:id/result", c.diagnostic.GetResult)
		}

		// 教师接口：表单登记走图校验门禁
		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.RoleTeacher))
		{
			teacher.POST("/diagnostic/forms", c.form.RegisterForm)
			teacher.GET("/diagnostic/results", c.diagnostic.ListLearnerResults)
			teacher.POST("/diagnostic/results/:id/review", c.diagnostic.ReviewResult)
		}
	}
}
