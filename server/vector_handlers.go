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
	"strings"

	"github.com/gorilla/mux"

	"github.com/researchagent/backend/chunking"
	"github.com/researchagent/backend/model"
)

type indexRequest struct {
	PaperID      string `json:"paper_id"`
	Title        string `json:"title"`
	Filename     string `json:"filename"`
	Content      string `json:"content"`
	MaxChunkSize int    `json:"max_chunk_size"`
}

// handleIndex parses, chunks, embeds, and indexes one paper's text.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("decode request: %v: %w", err, ErrValidation))
		return
	}
	if req.PaperID == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, r, fmt.Errorf("paper_id and content are required: %w", ErrValidation))
		return
	}

	structure := s.structure.Parse(r.Context(), req.Content)

	chunker := s.chunker
	if req.MaxChunkSize > 0 {
		built, err := chunking.NewRecursive(chunking.WithMaxChunkSize(req.MaxChunkSize))
		if err != nil {
			writeError(w, r, fmt.Errorf("%v: %w", err, ErrValidation))
			return
		}
		chunker = built
	}

	chunks, err := chunker.Chunk(req.PaperID, structure.Sections)
	if err != nil {
		writeError(w, r, fmt.Errorf("chunk paper: %w", err))
		return
	}
	if len(chunks) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"paper_id": req.PaperID, "chunks_created": 0})
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := s.embedder.GetEmbeddings(r.Context(), texts)
	if err != nil {
		writeError(w, r, fmt.Errorf("embed chunks: %w", err))
		return
	}
	embeddings := make([][]float32, len(vecs))
	for i, v := range vecs {
		embeddings[i] = toFloat32(v)
	}

	if err := s.index.InsertChunks(r.Context(), req.PaperID, chunks, embeddings); err != nil {
		writeError(w, r, fmt.Errorf("insert chunks: %w", err))
		return
	}

	sectionTypes := make(map[string]struct{})
	for _, c := range chunks {
		sectionTypes[string(c.SectionType)] = struct{}{}
	}
	types := make([]string, 0, len(sectionTypes))
	for t := range sectionTypes {
		types = append(types, t)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"paper_id":       req.PaperID,
		"title":          structure.Title,
		"chunks_created": len(chunks),
		"section_types":  types,
	})
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

type searchRequest struct {
	Query          string `json:"query"`
	PaperID        string `json:"paper_id"`
	TopK           int    `json:"top_k"`
	UseReranker    bool   `json:"use_reranker"`
	TranslateQuery bool   `json:"translate_query"`
	InitialK       int    `json:"initial_k"`
}

// handleSearch runs a pure dense search scoped to an optional paper_id.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("decode request: %v: %w", err, ErrValidation))
		return
	}
	if req.Query == "" {
		writeError(w, r, fmt.Errorf("query is required: %w", ErrValidation))
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}

	qv, err := s.embedder.GetEmbedding(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, fmt.Errorf("embed query: %w", err))
		return
	}
	entries, err := s.index.DenseSearch(r.Context(), toFloat32(qv), topK, req.PaperID)
	if err != nil {
		writeError(w, r, fmt.Errorf("dense search: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": entries})
}

// handleHybridSearch runs the full dense+sparse+RRF+rerank pipeline.
func (s *Server) handleHybridSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("decode request: %v: %w", err, ErrValidation))
		return
	}
	if req.Query == "" {
		writeError(w, r, fmt.Errorf("query is required: %w", ErrValidation))
		return
	}
	res, err := s.retriever.Search(r.Context(), req.Query, req.TopK, req.PaperID,
		req.UseReranker, req.TranslateQuery, req.InitialK)
	if err != nil {
		writeError(w, r, fmt.Errorf("hybrid search: %w", err))
		return
	}
	body := map[string]any{
		"final_results": res.FinalResults,
		"stats":         res.Stats,
	}
	if res.QueryTranslated {
		body["translated_query"] = res.TranslatedQuery
	}
	writeJSON(w, http.StatusOK, body)
}

type qaRequest struct {
	PaperID  string `json:"paper_id"`
	Question string `json:"question"`
}

// handleQAStream retrieves the passages most relevant to question within
// paper_id, sends a citation event per retrieved passage, and then streams
// the synthesized answer as SSE tokens.
func (s *Server) handleQAStream(w http.ResponseWriter, r *http.Request) {
	var req qaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("decode request: %v: %w", err, ErrValidation))
		return
	}
	if req.PaperID == "" || req.Question == "" {
		writeError(w, r, fmt.Errorf("paper_id and question are required: %w", ErrValidation))
		return
	}
	qaModel := s.answerModel()
	if qaModel == nil {
		writeError(w, r, fmt.Errorf("no QA model configured"))
		return
	}

	chunks, err := s.retriever.Retrieve(r.Context(), req.Question, req.PaperID)
	if err != nil {
		writeError(w, r, fmt.Errorf("retrieve passages: %w", err))
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(chunks) == 0 {
		sse.writeEvent("answer", "No relevant passages were found in this paper.")
		sse.writeEvent("done", "")
		return
	}

	var passages strings.Builder
	for _, c := range chunks {
		passages.WriteString(fmt.Sprintf("[%s] %s\n\n", c.ChunkID, c.Content))
		sse.writeEvent("citation", map[string]string{"chunk_id": c.ChunkID, "paper_id": c.PaperID})
	}

	req2 := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("Answer the question using only the provided " +
				"passages. Cite passages by their bracketed chunk_id. If the " +
				"passages do not contain the answer, say so."),
			model.NewUserMessage(fmt.Sprintf("Passages:\n%s\nQuestion: %s", passages.String(), req.Question)),
		},
	}
	out, err := qaModel.GenerateContent(r.Context(), req2)
	if err != nil {
		sse.writeEvent("error", map[string]string{"error": err.Error()})
		sse.writeEvent("done", "")
		return
	}
	for rsp := range out {
		if rsp.Error != nil {
			sse.writeEvent("error", map[string]string{"error": rsp.Error.Message})
			continue
		}
		if len(rsp.Choices) == 0 {
			continue
		}
		token := rsp.Choices[0].Delta.Content
		if token == "" {
			token = rsp.Choices[0].Message.Content
		}
		if token != "" {
			sse.writeEvent("answer", token)
		}
	}
	sse.writeEvent("done", "")
}

// handleDeletePaper cascades a delete across the dense and sparse indexes.
func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	paperID := mux.Vars(r)["paper_id"]
	if err := s.index.DeleteByPaper(r.Context(), paperID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
