package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/meroguru/meroguru-backend/internal/clients/openai"
	"github.com/meroguru/meroguru-backend/internal/clients/pinecone"
	"github.com/meroguru/meroguru-backend/internal/db"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/repos"
	"github.com/meroguru/meroguru-backend/internal/services"
	"github.com/meroguru/meroguru-backend/internal/utils"
)

const indexReadyPollInterval = 5 * time.Second

// indexsync provisions the vector index and re-embeds every knowledge
// entry into it. Run it after bulk-loading the knowledge base or after
// changing the embedding model.
func main() {
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

	ctx := context.Background()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	knowledgeRepo := repos.NewKnowledgeRepo(postgresService.DB(), log)

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	pineconeClient, err := pinecone.New(log, pinecone.Config{
		APIKey: utils.GetEnv("PINECONE_API_KEY", "", log),
	})
	if err != nil {
		log.Error("Could not init Pinecone client", "error", err)
		os.Exit(1)
	}

	indexName := utils.GetEnv("PINECONE_INDEX_NAME", "student-qa-index", log)
	dimension := utils.GetEnvAsInt("PINECONE_DIMENSION", 1536, log)
	if err := ensureIndex(ctx, log, pineconeClient, indexName, dimension); err != nil {
		log.Error("Could not provision index", "index", indexName, "error", err)
		os.Exit(1)
	}

	vectorStore, err := pinecone.NewVectorStore(log, pineconeClient, openaiClient)
	if err != nil {
		log.Error("Could not init vector store", "error", err)
		os.Exit(1)
	}

	entries, err := knowledgeRepo.List(ctx, nil, repos.KnowledgeFilters{})
	if err != nil {
		log.Error("Could not load knowledge entries", "error", err)
		os.Exit(1)
	}
	log.Info("Syncing knowledge entries into index", "count", len(entries), "index", indexName)

	synced := 0
	for _, entry := range entries {
		err := vectorStore.UpsertEntry(ctx, entry.ID.String(), entry.SearchText(), services.EntryMetadata(entry))
		if err != nil {
			log.Warn("Skipping entry", "id", entry.ID, "title", entry.Title, "error", err)
			continue
		}
		synced++
	}
	log.Info("Index sync complete", "synced", synced, "skipped", len(entries)-synced)
}

func ensureIndex(ctx context.Context, log *logger.Logger, pc pinecone.Client, name string, dimension int) error {
	desc, err := pc.DescribeIndex(ctx, name)
	if err == nil {
		log.Info("Index already exists", "index", name, "host", desc.Host)
		return nil
	}
	log.Info("Creating index", "index", name, "dimension", dimension)
	_, err = pc.CreateIndex(ctx, pinecone.CreateIndexRequest{
		Name:      name,
		Dimension: dimension,
		Metric:    "cosine",
		Spec: pinecone.CreateIndexSpec{
			Serverless: pinecone.ServerlessSpec{
				Cloud:  utils.GetEnv("PINECONE_CLOUD", "aws", log),
				Region: utils.GetEnv("PINECONE_REGION", "us-east-1", log),
			},
		},
	})
	if err != nil {
		return err
	}
	for {
		desc, err := pc.DescribeIndex(ctx, name)
		if err == nil && desc.Status.Ready {
			log.Info("Index ready", "index", name, "host", desc.Host)
			return nil
		}
		log.Info("Waiting for index to become ready...", "index", name)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(indexReadyPollInterval):
		}
	}
}
