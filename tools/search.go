//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package tools

import (
	"context"
	"fmt"

	"github.com/researchagent/backend/retriever"
)

// LiteratureSearch searches across every indexed paper for chunks relevant
// to a query.
type LiteratureSearch struct {
	retriever *retriever.Retriever
}

// NewLiteratureSearch builds a LiteratureSearch tool over r.
func NewLiteratureSearch(r *retriever.Retriever) *LiteratureSearch {
	return &LiteratureSearch{retriever: r}
}

// Definition implements Tool.
func (t *LiteratureSearch) Definition() Definition {
	return Definition{
		Name:        "literature_search",
		Description: "Search across all indexed papers for passages relevant to a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "search query"},
			},
			"required": []string{"query"},
		},
	}
}

// Call implements Tool.
func (t *LiteratureSearch) Call(ctx context.Context, args map[string]any) (any, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("literature_search: missing query argument")
	}
	chunks, err := t.retriever.Retrieve(ctx, query, "")
	if err != nil {
		return nil, fmt.Errorf("literature_search: %w", err)
	}
	return chunks, nil
}

// SemanticSearch restricts search to a single paper.
type SemanticSearch struct {
	retriever *retriever.Retriever
}

// NewSemanticSearch builds a SemanticSearch tool over r.
func NewSemanticSearch(r *retriever.Retriever) *SemanticSearch {
	return &SemanticSearch{retriever: r}
}

// Definition implements Tool.
func (t *SemanticSearch) Definition() Definition {
	return Definition{
		Name:        "semantic_search",
		Description: "Search within a single paper for passages relevant to a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"paper_id": map[string]any{"type": "string"},
				"query":    map[string]any{"type": "string"},
			},
			"required": []string{"paper_id", "query"},
		},
	}
}

// Call implements Tool.
func (t *SemanticSearch) Call(ctx context.Context, args map[string]any) (any, error) {
	paperID, _ := args["paper_id"].(string)
	query, _ := args["query"].(string)
	if paperID == "" || query == "" {
		return nil, fmt.Errorf("semantic_search: missing paper_id or query argument")
	}
	chunks, err := t.retriever.Retrieve(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("semantic_search: %w", err)
	}
	return chunks, nil
}
