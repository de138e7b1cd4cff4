//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory implements dualindex.DenseStore and dualindex.SparseStore
// without any external backend, for tests and local development.
package inmemory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/paper"
)

// DenseStore is an in-memory flat-scan vector store.
type DenseStore struct {
	mu   sync.RWMutex
	dim  int
	rows map[string]denseRow // keyed by chunk_id
}

type denseRow struct {
	chunk paper.Chunk
	vec   []float32
}

var _ dualindex.DenseStore = (*DenseStore)(nil)

// NewDenseStore returns an empty DenseStore.
func NewDenseStore() *DenseStore {
	return &DenseStore{rows: make(map[string]denseRow)}
}

// CreateCollection records the embedding dimension and, if recreate, wipes
// all rows.
func (s *DenseStore) CreateCollection(_ context.Context, dim int, recreate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = dim
	if recreate {
		s.rows = make(map[string]denseRow)
	}
	return nil
}

// Insert adds or replaces rows for each chunk.
func (s *DenseStore) Insert(_ context.Context, _ string, chunks []paper.Chunk, embeddings [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		s.rows[c.ChunkID] = denseRow{chunk: c, vec: embeddings[i]}
	}
	return nil
}

// DeleteByPaper removes every row belonging to paperID.
func (s *DenseStore) DeleteByPaper(_ context.Context, paperID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.chunk.PaperID == paperID {
			delete(s.rows, id)
		}
	}
	return nil
}

// Search returns the k nearest rows to qv by cosine distance, optionally
// scoped to paperID.
func (s *DenseStore) Search(_ context.Context, qv []float32, k int, paperID string) ([]dualindex.DenseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]dualindex.DenseEntry, 0, len(s.rows))
	for _, row := range s.rows {
		if paperID != "" && row.chunk.PaperID != paperID {
			continue
		}
		d := cosineDistance(qv, row.vec)
		entries = append(entries, dualindex.DenseEntry{
			Chunk:          row.chunk,
			Distance:       d,
			RelevanceScore: 1 / (1 + d),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Distance < entries[j].Distance })
	if k > 0 && len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

// Close is a no-op.
func (s *DenseStore) Close() error { return nil }

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	cosine := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - cosine
}

// SparseStore is an in-memory term-overlap BM25 approximation.
type SparseStore struct {
	mu   sync.RWMutex
	rows map[string]paper.Chunk
}

var _ dualindex.SparseStore = (*SparseStore)(nil)

// NewSparseStore returns an empty SparseStore.
func NewSparseStore() *SparseStore {
	return &SparseStore{rows: make(map[string]paper.Chunk)}
}

// CreateIndex wipes all rows when recreate is set; otherwise a no-op.
func (s *SparseStore) CreateIndex(_ context.Context, recreate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recreate {
		s.rows = make(map[string]paper.Chunk)
	}
	return nil
}

// Insert adds or replaces rows for each chunk.
func (s *SparseStore) Insert(_ context.Context, _ string, chunks []paper.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.rows[c.ChunkID] = c
	}
	return nil
}

// DeleteByPaper removes every row belonging to paperID.
func (s *SparseStore) DeleteByPaper(_ context.Context, paperID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.rows {
		if c.PaperID == paperID {
			delete(s.rows, id)
		}
	}
	return nil
}

// Search scores rows by term-overlap count against the query, a coarse
// stand-in for BM25 sufficient for exercising the dualindex/retriever
// invariants without a live Elasticsearch instance.
func (s *SparseStore) Search(_ context.Context, query string, k int, paperID string) ([]dualindex.SparseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	entries := make([]dualindex.SparseEntry, 0, len(s.rows))
	for _, c := range s.rows {
		if paperID != "" && c.PaperID != paperID {
			continue
		}
		content := strings.ToLower(c.Content)
		var score float64
		for _, t := range terms {
			score += float64(strings.Count(content, t))
		}
		if score == 0 {
			continue
		}
		entries = append(entries, dualindex.SparseEntry{Chunk: c, BM25Score: score})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BM25Score > entries[j].BM25Score })
	if k > 0 && len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

// Close is a no-op.
func (s *SparseStore) Close() error { return nil }
