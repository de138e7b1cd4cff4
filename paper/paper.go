//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package paper defines the domain types shared by ingestion, indexing,
// and retrieval: Paper, SectionNode, and Chunk.
package paper

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxChunkContentBytes bounds an individual chunk's content.
const MaxChunkContentBytes = 65 * 1024

// MaxHierarchyPathChars bounds the breadcrumb string.
const MaxHierarchyPathChars = 200

// MemoryOwnerPrefix marks the reserved paper-id namespace used by semantic
// memory: entries live under "memory:<user-id>" and never
// surface in user-facing paper search.
const MemoryOwnerPrefix = "memory:"

// SectionType is the closed classification of a paper section.
type SectionType string

// Canonical section types.
const (
	SectionAbstract    SectionType = "abstract"
	SectionIntro       SectionType = "introduction"
	SectionRelatedWork SectionType = "related_work"
	SectionMethods     SectionType = "methods"
	SectionExperiments SectionType = "experiments"
	SectionResults     SectionType = "results"
	SectionDiscussion  SectionType = "discussion"
	SectionConclusion  SectionType = "conclusion"
	SectionReferences  SectionType = "references"
	SectionAppendix    SectionType = "appendix"
	SectionOther       SectionType = "other"
)

// Paper is a stored document identity.
type Paper struct {
	ID        string    `json:"paper_id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	OwnerID   string    `json:"owner_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// MemoryPaperID returns the reserved paper id under which userID's semantic
// memory entries are stored in the dense index.
func MemoryPaperID(userID string) string {
	return MemoryOwnerPrefix + userID
}

// IsMemoryPaperID reports whether id is a reserved semantic-memory namespace.
func IsMemoryPaperID(id string) bool {
	return strings.HasPrefix(id, MemoryOwnerPrefix)
}

// SectionNode is one node of the parsed structure tree, transient between
// parsing (B) and chunking (A).
type SectionNode struct {
	Type     SectionType    `json:"section_type"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Children []*SectionNode `json:"children,omitempty"`
}

// Path returns the ancestor-inclusive breadcrumb for a node reached by path,
// e.g. []string{"Methods", "Data Collection"} -> "Methods > Data Collection",
// truncated to MaxHierarchyPathChars.
func Path(titles []string) string {
	joined := strings.Join(titles, " > ")
	runes := []rune(joined)
	if len(runes) <= MaxHierarchyPathChars {
		return joined
	}
	return string(runes[:MaxHierarchyPathChars])
}

// Chunk is a retrieval-unit substring of a paper with structural metadata.
type Chunk struct {
	// ChunkID is paper_id#ordinal, globally unique.
	ChunkID string `json:"chunk_id"`
	PaperID string `json:"paper_id"`
	// Ordinal is dense within a paper: 0..N-1, strictly increasing in
	// reading order.
	Ordinal int `json:"ordinal"`

	Content            string      `json:"content"`
	SectionType        SectionType `json:"section_type"`
	SectionTitle       string      `json:"section_title"`
	HierarchyPath      string      `json:"hierarchy_path"`
	CharCount          int         `json:"char_count"`
	IsCompleteSection  bool        `json:"is_complete_section"`
	UploadedAt         time.Time   `json:"uploaded_at"`
}

// NewChunkID builds the canonical chunk_id for paperID/ordinal.
func NewChunkID(paperID string, ordinal int) string {
	return paperID + "#" + strconv.Itoa(ordinal)
}

// ParseChunkID splits a chunk_id back into its paper id and ordinal.
func ParseChunkID(chunkID string) (paperID string, ordinal int, err error) {
	idx := strings.LastIndex(chunkID, "#")
	if idx < 0 {
		return "", 0, fmt.Errorf("paper: malformed chunk_id %q: missing '#'", chunkID)
	}
	paperID = chunkID[:idx]
	ordinal, err = strconv.Atoi(chunkID[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("paper: malformed chunk_id %q: %w", chunkID, err)
	}
	return paperID, ordinal, nil
}

// NewChunk constructs a Chunk, deriving ChunkID, CharCount, and truncating
// HierarchyPath/Content to their documented bounds.
func NewChunk(paperID string, ordinal int, content string, sectionType SectionType,
	sectionTitle, hierarchyPath string, isCompleteSection bool) Chunk {
	if len(content) > MaxChunkContentBytes {
		content = content[:MaxChunkContentBytes]
	}
	if r := []rune(hierarchyPath); len(r) > MaxHierarchyPathChars {
		hierarchyPath = string(r[:MaxHierarchyPathChars])
	}
	return Chunk{
		ChunkID:           NewChunkID(paperID, ordinal),
		PaperID:           paperID,
		Ordinal:           ordinal,
		Content:           content,
		SectionType:       sectionType,
		SectionTitle:      sectionTitle,
		HierarchyPath:     hierarchyPath,
		CharCount:         len([]rune(content)),
		IsCompleteSection: isCompleteSection,
		UploadedAt:        time.Now().UTC(),
	}
}

// ValidateOrdinals checks that chunks of a single paper have ordinals
// forming exactly {0, 1, ..., N-1}.
func ValidateOrdinals(chunks []Chunk) error {
	seen := make(map[int]bool, len(chunks))
	for _, c := range chunks {
		if seen[c.Ordinal] {
			return fmt.Errorf("paper: duplicate ordinal %d", c.Ordinal)
		}
		seen[c.Ordinal] = true
	}
	for i := 0; i < len(chunks); i++ {
		if !seen[i] {
			return fmt.Errorf("paper: ordinals are not dense: missing %d of %d", i, len(chunks))
		}
	}
	return nil
}
