//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the agent loop and dual index over the HTTP
// surface: /agent/* for conversational turns and tool introspection,
// /vector/* for ingestion and direct retrieval.
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/researchagent/backend/agentloop"
	"github.com/researchagent/backend/chunking"
	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/embedder"
	"github.com/researchagent/backend/memorystack"
	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/retriever"
	"github.com/researchagent/backend/structureparser"
)

// Server wires every core component behind the documented HTTP surface.
// Every dependency is constructed by the caller and passed in explicitly;
// Server holds no global state of its own beyond the per-thread memory map.
type Server struct {
	agent      *agentloop.Agent
	index      *dualindex.Index
	retriever  *retriever.Retriever
	embedder   embedder.Embedder
	chunker    *chunking.Recursive
	structure  *structureparser.Parser
	summarizer model.Model
	qaModel    model.Model
	cache      *memorystack.ConversationCache
	checkpoints *memorystack.CheckpointStore
	jwtSecret  []byte

	mu     sync.Mutex
	stacks map[string]*memorystack.Stack
}

// Option configures a Server.
type Option func(*Server)

// WithConversationCache attaches the Redis-backed conversation cache that
// backs per-user thread listing and conversation fetch and delete. No
// handler enqueues chat turns into it.
func WithConversationCache(c *memorystack.ConversationCache) Option {
	return func(s *Server) { s.cache = c }
}

// WithCheckpointStore attaches Redis-backed checkpoint history, cascaded on
// conversation delete.
func WithCheckpointStore(cp *memorystack.CheckpointStore) Option {
	return func(s *Server) { s.checkpoints = cp }
}

// WithSummarizer sets the model used to build each new thread's rolling
// memorystack.Stack. Without one, threads run without summarization.
func WithSummarizer(m model.Model) Option {
	return func(s *Server) { s.summarizer = m }
}

// WithQAModel sets the model used to synthesize answers for /vector/qa-stream.
// Without one, that endpoint falls back to the summarizer model.
func WithQAModel(m model.Model) Option {
	return func(s *Server) { s.qaModel = m }
}

// New builds a Server. agent answers chat turns, index/retriever/embedder
// back the /vector/* surface, chunker/structureParser back ingestion, and
// jwtSecret verifies bearer tokens.
func New(
	agent *agentloop.Agent,
	index *dualindex.Index,
	retr *retriever.Retriever,
	emb embedder.Embedder,
	chunker *chunking.Recursive,
	structureParser *structureparser.Parser,
	jwtSecret []byte,
	opts ...Option,
) *Server {
	s := &Server{
		agent:     agent,
		index:     index,
		retriever: retr,
		embedder:  emb,
		chunker:   chunker,
		structure: structureParser,
		jwtSecret: jwtSecret,
		stacks:    make(map[string]*memorystack.Stack),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stackFor returns the in-memory rolling-window Stack for threadID,
// creating an empty one the first time a thread is seen by this process.
// A new Stack is not seeded from the conversation cache.
func (s *Server) stackFor(threadID string) *memorystack.Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stacks[threadID]; ok {
		return st
	}
	st := memorystack.New(s.summarizer)
	s.stacks[threadID] = st
	return st
}

// answerModel returns the model used for direct question-answering, falling
// back to the thread summarizer when no dedicated QA model was configured.
func (s *Server) answerModel() model.Model {
	if s.qaModel != nil {
		return s.qaModel
	}
	return s.summarizer
}

// Routes builds the mux.Router for the documented HTTP surface. Every route
// below /agent and /vector requires a verified bearer token.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	agentR := r.PathPrefix("/agent").Subrouter()
	agentR.Use(s.authMiddleware)
	agentR.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	agentR.HandleFunc("/conversations", s.handleListConversations).Methods(http.MethodGet)
	agentR.HandleFunc("/conversations/{id}", s.handleGetConversation).Methods(http.MethodGet)
	agentR.HandleFunc("/conversations/{id}", s.handleDeleteConversation).Methods(http.MethodDelete)
	agentR.HandleFunc("/tools", s.handleListTools).Methods(http.MethodGet)
	agentR.HandleFunc("/tools/{name}/execute", s.handleExecuteTool).Methods(http.MethodPost)
	agentR.HandleFunc("/circuit-breakers", s.handleListBreakers).Methods(http.MethodGet)
	agentR.HandleFunc("/circuit-breakers/{name}/reset", s.handleResetBreaker).Methods(http.MethodPost)

	vectorR := r.PathPrefix("/vector").Subrouter()
	vectorR.Use(s.authMiddleware)
	vectorR.HandleFunc("/index", s.handleIndex).Methods(http.MethodPost)
	vectorR.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	vectorR.HandleFunc("/hybrid-search", s.handleHybridSearch).Methods(http.MethodPost)
	vectorR.HandleFunc("/qa-stream", s.handleQAStream).Methods(http.MethodPost)
	vectorR.HandleFunc("/delete/{paper_id}", s.handleDeletePaper).Methods(http.MethodDelete)

	return r
}

// Handler wraps Routes with CORS, ready to pass to http.ListenAndServe.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(s.Routes())
}
