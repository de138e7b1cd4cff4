//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/researchagent/backend/agentloop"
)

type chatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

// handleChat runs one user turn through the agent loop and streams every
// event back as SSE, ending with a terminal "done" event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	claims, _ := userFromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("decode request: %v: %w", err, ErrValidation))
		return
	}
	if req.Message == "" {
		writeError(w, r, fmt.Errorf("message is required: %w", ErrValidation))
		return
	}
	threadID := req.ThreadID
	if threadID == "" {
		threadID = claims.UserID + ":default"
	}

	if s.cache != nil {
		if err := s.cache.Touch(r.Context(), claims.UserID, threadID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	inv := &agentloop.Invocation{
		ID:          threadID,
		UserID:      claims.UserID,
		ThreadID:    threadID,
		UserMessage: req.Message,
		Memory:      s.stackFor(threadID),
	}
	events, err := s.agent.Run(r.Context(), inv)
	if err != nil {
		writeError(w, r, fmt.Errorf("%v: %w", err, ErrValidation))
		return
	}

	if streamErr := streamAgentEvents(w, events); streamErr != nil {
		writeError(w, r, streamErr)
	}
}

// handleListConversations lists every thread ID registered for the
// authenticated user.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	claims, _ := userFromContext(r.Context())
	if s.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"threads": []string{}})
		return
	}
	threads, err := s.cache.Threads(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

// handleGetConversation returns the persisted turns for one thread.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["id"]
	if s.cache == nil {
		writeError(w, r, fmt.Errorf("conversation %q: %w", threadID, ErrNotFound))
		return
	}
	turns, err := s.cache.Recent(r.Context(), threadID, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thread_id": threadID, "turns": turns})
}

// handleDeleteConversation cascades a thread delete across the conversation
// cache, checkpoint history, and this process's in-memory Stack.
func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	claims, _ := userFromContext(r.Context())
	threadID := mux.Vars(r)["id"]

	if s.cache != nil {
		if err := s.cache.Delete(r.Context(), claims.UserID, threadID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if s.checkpoints != nil {
		if err := s.checkpoints.Delete(r.Context(), threadID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	s.mu.Lock()
	delete(s.stacks, threadID)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// handleListTools enumerates the agent's registered tool catalog.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.agent.Tools()})
}

// handleExecuteTool invokes one tool directly, through its circuit breaker,
// bypassing the reasoning loop.
func (s *Server) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var args map[string]any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			writeError(w, r, fmt.Errorf("decode arguments: %v: %w", err, ErrValidation))
			return
		}
	}

	result, err := s.agent.CallTool(r.Context(), name, args)
	if err != nil {
		writeError(w, r, fmt.Errorf("tool %q: %v: %w", name, err, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListBreakers reports every tool's circuit breaker state and counters.
func (s *Server) handleListBreakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"breakers": s.agent.Breakers()})
}

// handleResetBreaker forces a named tool's breaker back to closed.
func (s *Server) handleResetBreaker(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.agent.ResetBreaker(name) {
		writeError(w, r, fmt.Errorf("breaker %q: %w", name, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "tool": name})
}
