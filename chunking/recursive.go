//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package chunking

import (
	"strings"

	"github.com/researchagent/backend/paper"
)

// separators is the total priority order used to split an oversized piece
// of text, highest priority first.
var separators = []string{
	"\n\n", "\n", "。", ". ", "；", "; ", "，", ", ", " ",
}

// Recursive implements Strategy with a recursive semantic splitting
// algorithm: depth-first pre-order section walk, try-whole-body-first,
// then split by highest-priority separator present, greedily packing
// pieces and propagating a trailing overlap between chunks.
//
// Grounded on core/knowledge/document/chunking/chunking.go's Strategy/
// Option/validate pattern and core/knowledge/chunking/paragraph.go's
// greedy packing + overlap propagation, generalized to a full recursive
// multi-separator splitter operating on a section tree.
type Recursive struct {
	opts *options
}

var _ Strategy = (*Recursive)(nil)

// NewRecursive constructs a Recursive chunking strategy.
func NewRecursive(opts ...Option) (*Recursive, error) {
	o := buildOptions(opts...)
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Recursive{opts: o}, nil
}

// Chunk implements Strategy.
func (r *Recursive) Chunk(paperID string, root []*paper.SectionNode) ([]paper.Chunk, error) {
	if len(root) == 0 {
		return nil, nil
	}
	b := &builder{
		strategy: r,
		paperID:  paperID,
	}
	for _, node := range root {
		b.walk(node, nil)
	}
	b.flushPending()
	return b.chunks, nil
}

// builder accumulates chunks and the pending cross-chunk overlap text
// while walking the section tree depth-first.
type builder struct {
	strategy *Recursive
	paperID  string
	chunks   []paper.Chunk
	pending  string // trailing overlap text carried from the previous chunk
}

func (b *builder) walk(node *paper.SectionNode, ancestorTitles []string) {
	if node == nil {
		return
	}
	titles := ancestorTitles
	if node.Title != "" {
		titles = append(append([]string{}, ancestorTitles...), node.Title)
	}
	hierarchyPath := paper.Path(titles)

	if strings.TrimSpace(node.Body) != "" {
		b.emitBody(node.Body, node.Type, node.Title, hierarchyPath)
	}
	for _, child := range node.Children {
		b.walk(child, titles)
	}
}

// emitBody emits one or more chunks for a single section's body text.
func (b *builder) emitBody(body string, sectionType paper.SectionType, sectionTitle, hierarchyPath string) {
	o := b.strategy.opts
	if len([]rune(body)) <= o.maxChunkSize {
		b.appendChunk(body, sectionType, sectionTitle, hierarchyPath, true)
		return
	}
	pieces := b.split(body, 0)
	b.packAndEmit(pieces, sectionType, sectionTitle, hierarchyPath)
}

// split recursively splits text by the highest-priority separator at or
// after separators[level] that is actually present in text. Falls back to
// a hard split at max_chunk_size once every separator has been tried.
func (b *builder) split(text string, level int) []string {
	o := b.strategy.opts
	if len([]rune(text)) <= o.maxChunkSize {
		return []string{text}
	}
	for ; level < len(separators); level++ {
		sep := separators[level]
		if strings.Contains(text, sep) {
			parts := strings.Split(text, sep)
			var out []string
			for i, p := range parts {
				if p == "" {
					continue
				}
				// Re-attach the separator (except possibly the last part)
				// so downstream packing sees natural text, matching the
				// source text's punctuation.
				piece := p
				if i < len(parts)-1 {
					piece += sep
				}
				if len([]rune(piece)) > o.maxChunkSize {
					out = append(out, b.split(piece, level+1)...)
				} else {
					out = append(out, piece)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	// Hard split: every separator exhausted, text (or a piece of it) is
	// still oversized.
	return hardSplit(text, o.maxChunkSize)
}

// hardSplit splits text into rune-bounded pieces of at most size runes.
func hardSplit(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// packAndEmit greedily packs pieces into chunks of at most max_chunk_size
// runes, propagating a trailing overlap of chunk_overlap runes between
// chunks. The overlap prefix is written before the next piece without a
// size check, so a chunk that starts with it can exceed max_chunk_size by
// up to chunk_overlap runes.
func (b *builder) packAndEmit(pieces []string, sectionType paper.SectionType, sectionTitle, hierarchyPath string) {
	o := b.strategy.opts
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		content := current.String()
		b.appendChunk(content, sectionType, sectionTitle, hierarchyPath, false)
		b.pending = extractOverlap(content, o.overlap)
		current.Reset()
		currentLen = 0
	}

	for _, piece := range pieces {
		pieceLen := len([]rune(piece))
		if currentLen == 0 && b.pending != "" {
			current.WriteString(b.pending)
			currentLen += len([]rune(b.pending))
			b.pending = ""
		}
		if currentLen > 0 && currentLen+pieceLen > o.maxChunkSize {
			flush()
			if b.pending != "" {
				current.WriteString(b.pending)
				currentLen += len([]rune(b.pending))
				b.pending = ""
			}
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}
	flush()
}

// extractOverlap returns the trailing n-rune suffix of content, or all of
// content if it is shorter than n runes.
func extractOverlap(content string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[len(runes)-n:])
}

func (b *builder) appendChunk(content string, sectionType paper.SectionType, sectionTitle, hierarchyPath string, isCompleteSection bool) {
	ordinal := len(b.chunks)
	b.chunks = append(b.chunks, paper.NewChunk(
		b.paperID, ordinal, content, sectionType, sectionTitle, hierarchyPath, isCompleteSection,
	))
}

// flushPending is a no-op placeholder kept for symmetry with packAndEmit's
// flush closure; overlap text with no following piece is simply dropped,
// since it only exists to prefix a subsequent chunk.
func (b *builder) flushPending() {
	b.pending = ""
}
