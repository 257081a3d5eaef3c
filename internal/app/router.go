package app

import (
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/middleware"
	"study_buddy_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), a.rateLimiter.Middleware())
	{
		a.registerCardRoutes(authGroup, c)
		a.registerGamificationRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	public.Use(a.rateLimiter.Middleware())
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/gamification/leaderboard", c.gamification.GetLeaderboard)
	}
}

func (a *App) registerCardRoutes(rg *gin.RouterGroup, c *controllers) {
	cards := rg.Group("/cards")
	{
		cards.POST("", c.card.CreateCard)
		cards.GET("", c.card.ListCards)
		cards.GET("/study-session", c.card.StudySession)
		cards.POST("/answer", c.card.SubmitAnswer)
		cards.GET("/decks", c.card.Decks)
		cards.DELETE("/:id", c.card.DeleteCard)
	}
}

func (a *App) registerGamificationRoutes(rg *gin.RouterGroup, c *controllers) {
	g := rg.Group("/gamification")
	{
		g.GET("/profile", c.gamification.GetProfile)
		g.GET("/achievements", c.gamification.GetAchievements)
		g.POST("/achievements/evaluate", c.gamification.EvaluateAchievements)
		g.POST("/session/start", c.gamification.StartSession)
		g.POST("/session/end", c.gamification.EndSession)
		g.GET("/stats/weekly", c.gamification.WeeklyStats)
	}
}
