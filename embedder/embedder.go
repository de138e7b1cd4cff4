//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package embedder defines the interface used to turn chunk text into dense
// vectors for the dual index's dense half.
package embedder

import "context"

// Embedder turns text into a dense embedding vector.
type Embedder interface {
	// GetEmbedding returns the embedding vector for a single text.
	GetEmbedding(ctx context.Context, text string) ([]float64, error)

	// GetEmbeddings returns embedding vectors for a batch of texts, in order.
	GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error)

	// GetDimensions returns the embedding vector size this embedder produces.
	GetDimensions() int
}
