package server

import (
	"github.com/labstack/echo/v4"

	"example.com/wealthsutra/backend/internal/handlers"
)

type routeHandlers struct {
	health        *handlers.HealthHandler
	auth          *handlers.AuthHandler
	profile       *handlers.ProfileHandler
	transactions  *handlers.TransactionHandler
	goals         *handlers.GoalHandler
	plans         *handlers.PlanHandler
	agent         *handlers.AgentHandler
	dashboard     *handlers.DashboardHandler
	notifications *handlers.NotificationHandler
	admin         *handlers.AdminHandler
}

type routeMiddleware struct {
	auth          echo.MiddlewareFunc
	stream        echo.MiddlewareFunc
	admin         echo.MiddlewareFunc
	authRateLimit echo.MiddlewareFunc
	aiRateLimit   echo.MiddlewareFunc
	ingestLimit   echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, h routeHandlers, mw routeMiddleware) {
	e.GET("/health", h.health.Health)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", mw.authRateLimit)

	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", h.auth.Logout)
	authGroup.GET("/me", h.auth.Me, mw.auth)

	profile := api.Group("/profile", mw.auth)
	profile.GET("", h.profile.Get)
	profile.PUT("", h.profile.Upsert)

	// браузерный WebSocket не передает заголовки, токен приходит в query
	api.GET("/transactions/ws", h.transactions.Stream, mw.stream, mw.ingestLimit)

	transactions := api.Group("/transactions", mw.auth)
	transactions.POST("/ingest", h.transactions.Ingest, mw.ingestLimit)
	transactions.GET("", h.transactions.List)
	transactions.GET("/export", h.transactions.Export)

	goals := api.Group("/goals", mw.auth)
	goals.POST("", h.goals.Create)
	goals.GET("", h.goals.List)

	plans := api.Group("/plans", mw.auth)
	plans.GET("/active", h.plans.Active)
	plans.GET("/history", h.plans.History)
	plans.GET("/risk-events", h.plans.RiskEventList)

	agentGroup := api.Group("/agent", mw.auth, mw.aiRateLimit)
	agentGroup.POST("/plan", h.agent.GeneratePlan)

	api.GET("/dashboard", h.dashboard.Get, mw.auth)

	api.GET("/notifications/stream", h.notifications.Stream, mw.stream)

	admin := api.Group("/admin", mw.auth, mw.admin)
	admin.GET("/users", h.admin.ListUsers)
	admin.GET("/ai-requests", h.admin.ListAIRequests)
	admin.GET("/usage", h.admin.Usage)
}
