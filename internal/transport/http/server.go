package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"ragchat/internal/ai"
	appsvc "ragchat/internal/app"
	"ragchat/internal/bootstrap"
	"ragchat/internal/cache"
	"ragchat/internal/platform/rabbitmq"
	"ragchat/internal/repository"
	"ragchat/internal/transport/http/handler"
	"ragchat/internal/vecstore"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	sessionRepo := repository.NewSessionRepository(app.DB)
	messageRepo := repository.NewMessageRepository(app.DB)
	fileRepo := repository.NewFileRepository(app.DB)

	vecStore := vecstore.NewStore(app.Config.Storage.UploadRoot)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)

	embedder := ai.NewEmbeddingClient(ai.EmbeddingConfig{
		BaseURL: app.Config.LLM.EmbeddingBaseURL,
		APIKey:  app.Config.LLM.EmbeddingAPIKey,
		Model:   app.Config.LLM.EmbeddingModel,
	})
	completer := ai.NewInferenceClient(ai.InferenceConfig{
		Endpoint:           app.Config.LLM.Endpoint,
		Timeout:            time.Duration(app.Config.LLM.TimeoutSeconds) * time.Second,
		MaxRetries:         app.Config.LLM.MaxRetries,
		InsecureSkipVerify: app.Config.LLM.InsecureSkipVerify,
	})

	sessionService := appsvc.NewSessionService(sessionRepo, messageRepo, fileRepo, vecStore, historyCache, app.Logger)
	ingestService := appsvc.NewIngestService(fileRepo, vecStore, embedder, appsvc.IngestConfig{
		ChunkSize:    app.Config.RAG.ChunkSize,
		ChunkOverlap: app.Config.RAG.ChunkOverlap,
	}, app.Logger)
	chatService := appsvc.NewChatService(
		sessionRepo, messageRepo, vecStore, embedder, completer,
		publisher, historyCache,
		app.Config.RAG.TopK, app.Config.RAG.FetchK,
		app.Logger,
	)

	sessionHandler := handler.NewSessionHandler(sessionService)
	chatHandler := handler.NewChatHandler(chatService)
	uploadHandler := handler.NewUploadHandler(ingestService)
	healthHandler := handler.NewHealthHandler(app)

	router.GET("/healthz", healthHandler.Check)

	router.POST("/create_session", sessionHandler.CreateSession)
	router.POST("/rename_session", sessionHandler.RenameSession)
	router.GET("/get_sessions", sessionHandler.GetSessions)
	router.POST("/get_session_messages", sessionHandler.GetSessionMessages)
	router.DELETE("/delete_session/:id", sessionHandler.DeleteSession)
	router.POST("/generate_text", chatHandler.GenerateText)
	router.POST("/upload_file", uploadHandler.UploadFile)
	router.GET("/get_files/:id", sessionHandler.GetFiles)

	return router
}
