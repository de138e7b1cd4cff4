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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/paper"
)

// MindmapNode is one node of a paper's concept tree.
type MindmapNode struct {
	Label    string        `json:"label"`
	Children []MindmapNode `json:"children,omitempty"`
}

// Mindmap builds a hierarchical concept tree summarizing a paper's
// sections, grounded on the same single-shot JSON-mode generation pattern
// used by the hybrid retriever's cross-encoder reranker.
type Mindmap struct {
	model model.Model
}

// NewMindmap builds a Mindmap tool backed by m.
func NewMindmap(m model.Model) *Mindmap {
	return &Mindmap{model: m}
}

// Definition implements Tool.
func (t *Mindmap) Definition() Definition {
	return Definition{
		Name:        "generate_mindmap",
		Description: "Generate a hierarchical concept map summarizing a paper's sections.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"paper_id": map[string]any{"type": "string"},
			},
			"required": []string{"paper_id"},
		},
	}
}

// GenerateFromSections builds the concept tree from an already-retrieved
// set of section chunks; the caller is responsible for fetching the full
// text via the dual index before calling this.
func (t *Mindmap) GenerateFromSections(ctx context.Context, paperTitle string, chunks []paper.Chunk) (MindmapNode, error) {
	var body strings.Builder
	for _, c := range chunks {
		body.WriteString(fmt.Sprintf("## %s\n%s\n\n", c.HierarchyPath, c.Content))
	}

	req := &model.Request{
		JSONMode: true,
		Messages: []model.Message{
			model.NewSystemMessage("Summarize the paper's sections as a hierarchical " +
				"concept map. Respond with strict JSON matching " +
				`{"label": string, "children": [...]}` + ", nesting at most three levels deep."),
			model.NewUserMessage(fmt.Sprintf("Title: %s\n\n%s", paperTitle, body.String())),
		},
	}
	out, err := t.model.GenerateContent(ctx, req)
	if err != nil {
		return MindmapNode{}, fmt.Errorf("generate_mindmap: %w", err)
	}

	var raw strings.Builder
	for rsp := range out {
		if rsp.Error != nil {
			return MindmapNode{}, fmt.Errorf("generate_mindmap: %s", rsp.Error.Message)
		}
		if len(rsp.Choices) > 0 {
			if rsp.Choices[0].Delta.Content != "" {
				raw.WriteString(rsp.Choices[0].Delta.Content)
			} else if rsp.Choices[0].Message.Content != "" {
				raw.WriteString(rsp.Choices[0].Message.Content)
			}
		}
	}

	var node MindmapNode
	if err := json.Unmarshal([]byte(raw.String()), &node); err != nil {
		return MindmapNode{Label: paperTitle}, nil
	}
	return node, nil
}

// Call implements Tool. Callers normally invoke GenerateFromSections
// directly with chunks already fetched; Call exists to satisfy
// function-call dispatch and returns an error since it has no index to
// fetch from.
func (t *Mindmap) Call(ctx context.Context, args map[string]any) (any, error) {
	return nil, fmt.Errorf("generate_mindmap: must be invoked via GenerateFromSections with pre-fetched sections")
}
