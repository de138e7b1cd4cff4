//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package structureparser classifies a paper's raw text into a titled
// section tree via a JSON-mode LLM call, falling back to a regex/keyword
// parser on any failure.
package structureparser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/researchagent/backend/internal/jsonrepair"
	"github.com/researchagent/backend/log"
	agentmodel "github.com/researchagent/backend/model"
	"github.com/researchagent/backend/paper"
)

// DefaultMaxInputBytes is the configurable byte ceiling the paper text is
// truncated to before being sent to the LLM.
const DefaultMaxInputBytes = 50 * 1024

// PaperStructure is the parsed result.
type PaperStructure struct {
	Title           string              `json:"title"`
	Authors         []string            `json:"authors"`
	Abstract        string              `json:"abstract"`
	Sections        []*paper.SectionNode `json:"sections"`
	ReferencesCount int                 `json:"references_count"`
}

// Parser parses paper text into a PaperStructure.
type Parser struct {
	model        agentmodel.Model
	maxInputBytes int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxInputBytes overrides DefaultMaxInputBytes.
func WithMaxInputBytes(n int) Option {
	return func(p *Parser) { p.maxInputBytes = n }
}

// New creates a Parser backed by model, used for the JSON-mode completion.
func New(model agentmodel.Model, opts ...Option) *Parser {
	p := &Parser{model: model, maxInputBytes: DefaultMaxInputBytes}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

const systemPrompt = `You are a scientific paper structure parser. Given the ` +
	`text of an academic paper, return a single JSON object with fields: ` +
	`title (string), authors (array of strings), abstract (string), ` +
	`references_count (integer), and sections (array of section objects). ` +
	`Each section object has: section_type (one of abstract, introduction, ` +
	`related_work, methods, experiments, results, discussion, conclusion, ` +
	`references, appendix, other), title (string), body (the section's ` +
	`original text, verbatim, no summarization or translation), and ` +
	`children (array of section objects, possibly empty). Return JSON only.`

// Parse parses text into a PaperStructure. On any of {non-JSON reply,
// schema violation, LLM timeout, provider error}, it falls back to the
// regex/keyword parser and never returns an error for that reason — parser
// failure must never be fatal for the ingestion pipeline.
func (p *Parser) Parse(ctx context.Context, text string) *PaperStructure {
	truncated := text
	if len(truncated) > p.maxInputBytes {
		truncated = truncated[:p.maxInputBytes]
	}

	structure, err := p.parseViaLLM(ctx, truncated)
	if err != nil {
		log.WarnContext(ctx, fmt.Sprintf("structureparser: LLM parse failed, falling back: %v", err))
		return parseFallback(text)
	}
	return structure
}

func (p *Parser) parseViaLLM(ctx context.Context, text string) (*PaperStructure, error) {
	if p.model == nil {
		return nil, fmt.Errorf("structureparser: no model configured")
	}
	req := &agentmodel.Request{
		JSONMode: true,
		Messages: []agentmodel.Message{
			agentmodel.NewSystemMessage(systemPrompt),
			agentmodel.NewUserMessage(text),
		},
	}
	out, err := p.model.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var final *agentmodel.Response
	for rsp := range out {
		if rsp.Error != nil {
			return nil, fmt.Errorf("provider error: %s", rsp.Error.Message)
		}
		final = rsp
	}
	if final == nil || len(final.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	raw := []byte(final.Choices[0].Message.Content)
	repaired, err := jsonrepair.Repair(raw)
	if err != nil {
		return nil, fmt.Errorf("repair json: %w", err)
	}

	var structure PaperStructure
	if err := json.Unmarshal(repaired, &structure); err != nil {
		return nil, fmt.Errorf("unmarshal structure: %w", err)
	}
	if err := validate(&structure); err != nil {
		return nil, err
	}
	return &structure, nil
}

// validate enforces the closed section_type set.
func validate(s *PaperStructure) error {
	var walk func(nodes []*paper.SectionNode) error
	walk = func(nodes []*paper.SectionNode) error {
		for _, n := range nodes {
			if !isValidSectionType(n.Type) {
				return fmt.Errorf("structureparser: invalid section_type %q", n.Type)
			}
			if err := walk(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(s.Sections)
}

func isValidSectionType(t paper.SectionType) bool {
	switch t {
	case paper.SectionAbstract, paper.SectionIntro, paper.SectionRelatedWork,
		paper.SectionMethods, paper.SectionExperiments, paper.SectionResults,
		paper.SectionDiscussion, paper.SectionConclusion, paper.SectionReferences,
		paper.SectionAppendix, paper.SectionOther:
		return true
	default:
		return false
	}
}
