package main

import (
	"sara-smart-go/internal/handler"
	"sara-smart-go/internal/middleware"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// routerDeps 是注册路由所需的全部服务。
type routerDeps struct {
	allowOrigin string
	jwtManager  *token.JWTManager
	chat        service.ChatService
	seo         service.SEOService
	analytics   service.AnalyticsService
	admin       service.AdminService
	knowledge   service.KnowledgeService
	models      handler.ModelStats
}

// newRouter 创建路由引擎。公开接口自行返回 405，因此用 Any 注册。
func newRouter(d routerDeps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(d.allowOrigin))

	chatHandler := handler.NewChatHandler(d.chat)
	api := r.Group("/api")
	{
		api.Any("/agente", chatHandler.Chat)
		api.GET("/agente/ws", chatHandler.Handle)
		api.POST("/agente/session/end", chatHandler.EndSession)
		api.Any("/seo-analyzer", handler.NewSEOHandler(d.seo).Analyze)
		api.Any("/metrics", handler.NewMetricsHandler(d.analytics).Get)
		api.GET("/health", handler.NewHealthHandler(d.knowledge, d.models).Get)

		api.POST("/admin/login", handler.NewAuthHandler(d.admin).Login)

		admin := api.Group("/admin")
		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin.Use(middleware.AuthMiddleware(d.jwtManager), middleware.AdminAuthMiddleware())
		{
			admin.GET("/leads", handler.NewAdminHandler(d.admin).ListLeads)
			admin.GET("/sessions", handler.NewAdminHandler(d.admin).RecentSessions)
			admin.GET("/sessions/search", handler.NewAdminHandler(d.admin).SearchSessions)
			admin.GET("/conversation/:sessionId", handler.NewConversationHandler(d.admin).GetConversation)
			admin.GET("/conversations", handler.NewConversationHandler(d.admin).GetAllConversations)
		}
	}
	return r
}
