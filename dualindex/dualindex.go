//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package dualindex owns the paired dense (vector) and sparse (BM25)
// representations of a paper's chunks, keyed by chunk_id.
package dualindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/researchagent/backend/log"
	"github.com/researchagent/backend/paper"
)

// DenseEntry is a stored dense-index row.
type DenseEntry struct {
	Chunk     paper.Chunk
	Embedding []float32
	Distance  float64
	// RelevanceScore = 1/(1+distance), populated on search results.
	RelevanceScore float64
}

// SparseEntry is a stored sparse-index row.
type SparseEntry struct {
	Chunk    paper.Chunk
	BM25Score float64
}

// DenseStore is the minimum surface a dense (ANN) vector backend exposes.
type DenseStore interface {
	CreateCollection(ctx context.Context, dim int, recreate bool) error
	Insert(ctx context.Context, paperID string, chunks []paper.Chunk, embeddings [][]float32) error
	DeleteByPaper(ctx context.Context, paperID string) error
	Search(ctx context.Context, qv []float32, k int, paperID string) ([]DenseEntry, error)
	Close() error
}

// SparseStore is the minimum surface a BM25 backend exposes.
type SparseStore interface {
	CreateIndex(ctx context.Context, recreate bool) error
	Insert(ctx context.Context, paperID string, chunks []paper.Chunk) error
	DeleteByPaper(ctx context.Context, paperID string) error
	Search(ctx context.Context, query string, k int, paperID string) ([]SparseEntry, error)
	Close() error
}

// Index is the backend-agnostic façade that sequences calls to the dense
// and sparse stores and enforces the presence invariant between them:
// for each chunk_id, dense ⇔ sparse ⇔ global BM25 bag.
type Index struct {
	dense  DenseStore
	sparse SparseStore

	// mu serializes sparse-index mutations: concurrent clear_all/
	// remove_documents calls on the BM25 store must be serialized.
	mu sync.Mutex
}

// New builds an Index over the given dense and sparse backends.
func New(dense DenseStore, sparse SparseStore) *Index {
	return &Index{dense: dense, sparse: sparse}
}

// CreateCollection is idempotent across both backends; recreate force-drops
// all data.
func (idx *Index) CreateCollection(ctx context.Context, dim int, recreate bool) error {
	if err := idx.dense.CreateCollection(ctx, dim, recreate); err != nil {
		return fmt.Errorf("dualindex: create dense collection: %w", err)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.sparse.CreateIndex(ctx, recreate); err != nil {
		return fmt.Errorf("dualindex: create sparse index: %w", err)
	}
	return nil
}

// InsertChunks inserts chunks/embeddings into the dense index, and only on
// success does it also add the sparse entries.
func (idx *Index) InsertChunks(ctx context.Context, paperID string, chunks []paper.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("dualindex: chunks/embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := idx.dense.Insert(ctx, paperID, chunks, embeddings); err != nil {
		return fmt.Errorf("dualindex: dense insert: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.sparse.Insert(ctx, paperID, chunks); err != nil {
		// Dense-then-sparse insert failure: the caller sees the failure;
		// the dense rows are left for garbage collection on the next
		// delete-by-paper.
		log.ErrorContext(ctx, fmt.Sprintf(
			"dualindex: sparse insert failed after dense insert succeeded for paper %q, "+
				"dense rows left for GC on next delete: %v", paperID, err))
		return fmt.Errorf("dualindex: sparse insert: %w", err)
	}
	return nil
}

// DeleteByPaper removes dense rows, then sparse rows, then the global BM25
// bag is implicitly rebuilt by the sparse backend's own indexing. Returns
// success iff both removed (or both were already absent).
func (idx *Index) DeleteByPaper(ctx context.Context, paperID string) error {
	if err := idx.dense.DeleteByPaper(ctx, paperID); err != nil {
		return fmt.Errorf("dualindex: dense delete: %w", err)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.sparse.DeleteByPaper(ctx, paperID); err != nil {
		return fmt.Errorf("dualindex: sparse delete: %w", err)
	}
	return nil
}

// DenseSearch returns up to k dense records, optionally scoped to paperID.
func (idx *Index) DenseSearch(ctx context.Context, qv []float32, k int, paperID string) ([]DenseEntry, error) {
	return idx.dense.Search(ctx, qv, k, paperID)
}

// SparseSearch returns up to k BM25-scored records, optionally scoped to paperID.
func (idx *Index) SparseSearch(ctx context.Context, query string, k int, paperID string) ([]SparseEntry, error) {
	return idx.sparse.Search(ctx, query, k, paperID)
}

// Close releases both backends.
func (idx *Index) Close() error {
	denseErr := idx.dense.Close()
	sparseErr := idx.sparse.Close()
	if denseErr != nil {
		return denseErr
	}
	return sparseErr
}
