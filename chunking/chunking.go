//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package chunking splits a parsed paper structure into ordered,
// semantically coherent Chunks.
package chunking

import (
	"errors"

	"github.com/researchagent/backend/paper"
)

// Default tuning parameters.
const (
	DefaultMaxChunkSize = 1000
	DefaultMinChunkSize = 100
	DefaultOverlap      = 100
)

// Sentinel validation errors.
var (
	ErrInvalidMaxChunkSize = errors.New("chunking: max_chunk_size must be > 0")
	ErrInvalidOverlap      = errors.New("chunking: overlap must be >= 0")
	ErrOverlapTooLarge     = errors.New("chunking: overlap must be < max_chunk_size")
)

// Strategy produces chunks from a parsed section tree.
type Strategy interface {
	Chunk(paperID string, root []*paper.SectionNode) ([]paper.Chunk, error)
}

// options holds the tunable knobs shared by all strategies.
type options struct {
	maxChunkSize int
	minChunkSize int
	overlap      int
}

// Option configures a Strategy constructor.
type Option func(*options)

// WithMaxChunkSize overrides the default max_chunk_size.
func WithMaxChunkSize(n int) Option {
	return func(o *options) { o.maxChunkSize = n }
}

// WithMinChunkSize overrides the default min_chunk_size.
func WithMinChunkSize(n int) Option {
	return func(o *options) { o.minChunkSize = n }
}

// WithOverlap overrides the default chunk_overlap.
func WithOverlap(n int) Option {
	return func(o *options) { o.overlap = n }
}

func buildOptions(opts ...Option) *options {
	o := &options{
		maxChunkSize: DefaultMaxChunkSize,
		minChunkSize: DefaultMinChunkSize,
		overlap:      DefaultOverlap,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) validate() error {
	if o.maxChunkSize <= 0 {
		return ErrInvalidMaxChunkSize
	}
	if o.overlap < 0 {
		return ErrInvalidOverlap
	}
	if o.overlap >= o.maxChunkSize {
		return ErrOverlapTooLarge
	}
	return nil
}
