package app

import (
	"learning_progress/internal/config"
	"learning_progress/internal/middleware"
	"learning_progress/internal/util"
	"learning_progress/pkg/monitoring"
	"learning_progress/pkg/security"
	"time"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/leaderboard", c.leaderboard.GetLeaderboard)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		// 测验提交按用户单独限流
		submitLimit := security.RateLimiter(cfg.RateLimit.SubmissionsPerMinute, time.Minute, security.ByUser(util.CurrentUserID))
		authGroup.POST("/quiz/submit", submitLimit, c.quiz.SubmitQuiz)

		authGroup.GET("/error-book", c.errorBook.GetErrorBook)
		authGroup.POST("/error-book/:id/review", c.errorBook.ReviewEntry)
		authGroup.DELETE("/error-book/:id", c.errorBook.RemoveEntry)

		authGroup.GET("/tasks/daily", c.progress.GetDailyTasks)
		authGroup.POST("/tasks/daily/:id/claim", c.progress.ClaimReward)

		authGroup.POST("/progress/streak", c.progress.RefreshStreak)
		authGroup.GET("/progress/summary", c.progress.GetSummary)

		authGroup.GET("/leaderboard/me", c.leaderboard.GetMyRank)
	}
}
