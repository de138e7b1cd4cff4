//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Command server wires every component (model, embedder, dual index,
// retriever, agent loop, memory stores) and serves the HTTP surface.
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/redis/go-redis/v9"

	"github.com/researchagent/backend/agentloop"
	"github.com/researchagent/backend/chunking"
	"github.com/researchagent/backend/circuitbreaker"
	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/dualindex/elasticsearch"
	"github.com/researchagent/backend/dualindex/milvus"
	embedderopenai "github.com/researchagent/backend/embedder/openai"
	"github.com/researchagent/backend/log"
	"github.com/researchagent/backend/memorystack"
	modelopenai "github.com/researchagent/backend/model/openai"
	"github.com/researchagent/backend/retriever"
	"github.com/researchagent/backend/server"
	"github.com/researchagent/backend/structureparser"
	"github.com/researchagent/backend/tools"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func main() {
	log.SetLevel(env("LOG_LEVEL", "info"))

	ctx := context.Background()

	apiKey := os.Getenv("OPENAI_API_KEY")
	baseURL := os.Getenv("OPENAI_BASE_URL")

	chatModel := modelopenai.New(env("CHAT_MODEL", "gpt-4o-mini"),
		modelopenai.WithAPIKey(apiKey), modelopenai.WithBaseURL(baseURL))
	structureModel := modelopenai.New(env("STRUCTURE_MODEL", "gpt-4o-mini"),
		modelopenai.WithAPIKey(apiKey), modelopenai.WithBaseURL(baseURL))
	summaryModel := modelopenai.New(env("SUMMARY_MODEL", "gpt-4o-mini"),
		modelopenai.WithAPIKey(apiKey), modelopenai.WithBaseURL(baseURL))

	emb := embedderopenai.New(
		embedderopenai.WithAPIKey(apiKey),
		embedderopenai.WithBaseURL(baseURL),
		embedderopenai.WithModel(env("EMBEDDING_MODEL", "text-embedding-3-small")),
		embedderopenai.WithDimensions(envInt("EMBEDDING_DIMENSIONS", 1536)),
	)

	milvusClient, err := milvus.New(ctx, &milvusclient.ClientConfig{
		Address: env("MILVUS_ADDR", "localhost:19530"),
	}, env("MILVUS_COLLECTION", "paper_chunks"))
	if err != nil {
		log.Fatal("connect milvus: ", err)
	}
	esClient, err := elasticsearch.New(
		strings.Split(env("ELASTICSEARCH_ADDRS", "http://localhost:9200"), ","),
		env("ELASTICSEARCH_INDEX", "paper_chunks"),
	)
	if err != nil {
		log.Fatal("connect elasticsearch: ", err)
	}

	index := dualindex.New(milvusClient, esClient)
	if err := index.CreateCollection(ctx, emb.GetDimensions(), false); err != nil {
		log.Fatal("create collection: ", err)
	}

	retr := retriever.New(index, emb,
		retriever.WithTranslator(chatModel),
		retriever.WithReranker(retriever.NewCrossEncoderReranker(chatModel)),
	)

	chunker, err := chunking.NewRecursive()
	if err != nil {
		log.Fatal("build chunker: ", err)
	}
	structureParser := structureparser.New(structureModel)

	redisClient := redis.NewClient(&redis.Options{Addr: env("REDIS_ADDR", "localhost:6379")})
	conversationCache := memorystack.NewConversationCache(redisClient)
	checkpointStore := memorystack.NewCheckpointStore(redisClient)

	toolSet := []tools.Tool{
		tools.NewLiteratureSearch(retr),
		tools.NewSemanticSearch(retr),
		tools.NewPaperQA(retr, chatModel),
		tools.NewAnalysis(chatModel),
		tools.NewMindmap(chatModel),
		tools.NewComparePapers(retr, chatModel),
	}
	breakerCfg := circuitbreaker.DefaultConfig
	alternatives := map[string]string{
		"semantic_search":    "literature_search",
		"literature_search":  "semantic_search",
	}
	agent := agentloop.New(chatModel, toolSet, breakerCfg, alternatives,
		agentloop.WithMaxIterations(envInt("MAX_ITERATIONS", agentloop.DefaultMaxIterations)))

	srv := server.New(agent, index, retr, emb, chunker, structureParser, []byte(env("JWT_SECRET", "")),
		server.WithConversationCache(conversationCache),
		server.WithCheckpointStore(checkpointStore),
		server.WithSummarizer(summaryModel),
		server.WithQAModel(chatModel),
	)

	allowedOrigins := strings.Split(env("CORS_ALLOWED_ORIGINS", "*"), ",")
	addr := env("LISTEN_ADDR", ":8080")
	log.Info("server: listening on ", addr)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(allowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httpSrv.ListenAndServe(); err != nil {
		log.Fatal("server: ", err)
	}
}
