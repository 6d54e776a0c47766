package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "datacopilot/internal/app"
	"datacopilot/internal/bootstrap"
	"datacopilot/internal/cache"
	"datacopilot/internal/dataset"
	"datacopilot/internal/platform/rabbitmq"
	"datacopilot/internal/repository"
	"datacopilot/internal/tools"
	"datacopilot/internal/transport/http/handler"
	"datacopilot/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	chatRepo := repository.NewChatRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	suggestionRepo := repository.NewSuggestionRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	schemaCache := cache.NewSchemaCache(
		app.Redis,
		time.Duration(app.Config.Dataset.SchemaTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)

	compressor := dataset.NewCompressor(app.Gateway, schemaCache, app.Schema)
	toolRegistry := tools.NewRegistry(documentRepo, suggestionRepo, app.Gateway, app.Catalog.Default())

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		app.Catalog,
		chatRepo,
		messageRepo,
		publisher,
		historyCache,
		app.Gateway,
		toolRegistry,
		compressor,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService, app.Catalog)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	authed.GET("/models", chatHandler.ListModels)
	authed.POST("/chat", chatHandler.ChatTurn)
	authed.DELETE("/chat", chatHandler.DeleteChat)
	authed.GET("/chats", chatHandler.ListChats)
	authed.GET("/chat/history", chatHandler.GetHistory)

	return router
}
