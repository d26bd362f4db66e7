package main

import (
	"fmt"
	"os"

	"github.com/meroguru/meroguru-backend/internal/clients/openai"
	"github.com/meroguru/meroguru-backend/internal/clients/pinecone"
	"github.com/meroguru/meroguru-backend/internal/db"
	"github.com/meroguru/meroguru-backend/internal/handlers"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/metrics"
	"github.com/meroguru/meroguru-backend/internal/repos"
	"github.com/meroguru/meroguru-backend/internal/server"
	"github.com/meroguru/meroguru-backend/internal/services"
	"github.com/meroguru/meroguru-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	knowledgeRepo := repos.NewKnowledgeRepo(thePG, log)
	threadRepo := repos.NewChatThreadRepo(thePG, log)
	messageRepo := repos.NewChatMessageRepo(thePG, log)

	// Clients
	log.Info("Setting up clients from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	var vectorStore pinecone.VectorStore
	pineconeKey := utils.GetEnv("PINECONE_API_KEY", "", log)
	if pineconeKey != "" {
		pineconeClient, err := pinecone.New(log, pinecone.Config{APIKey: pineconeKey})
		if err != nil {
			log.Warn("Could not init Pinecone client", "error", err)
		} else {
			vectorStore, err = pinecone.NewVectorStore(log, pineconeClient, openaiClient)
			if err != nil {
				log.Warn("Could not init vector store, continuing with keyword search only", "error", err)
				vectorStore = nil
			}
		}
	} else {
		log.Warn("PINECONE_API_KEY not set, continuing with keyword search only")
	}

	// Services
	log.Info("Setting up services from main...")
	retrievalService := services.NewRetrievalService(log, knowledgeRepo, vectorStore)
	titleService := services.NewTitleService(log, openaiClient)
	chatService := services.NewChatService(log, threadRepo, messageRepo, retrievalService, titleService, openaiClient)
	knowledgeService := services.NewKnowledgeService(log, knowledgeRepo, vectorStore)

	// Metrics
	monitor := metrics.NewMonitor()

	// Handlers
	log.Info("Setting up handlers from main...")
	chatHandler := handlers.NewChatHandler(log, chatService)
	threadHandler := handlers.NewThreadHandler(log, chatService)
	knowledgeHandler := handlers.NewKnowledgeHandler(log, knowledgeService)
	healthHandler := handlers.NewHealthHandler(thePG, monitor)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ChatHandler:      chatHandler,
		ThreadHandler:    threadHandler,
		KnowledgeHandler: knowledgeHandler,
		HealthHandler:    healthHandler,
		Monitor:          monitor,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
