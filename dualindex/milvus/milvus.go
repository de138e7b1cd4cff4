//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package milvus implements dualindex.DenseStore against a Milvus collection
// of paper chunks.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/paper"
)

const (
	fieldChunkID      = "chunk_id"
	fieldPaperID      = "paper_id"
	fieldOrdinal      = "ordinal"
	fieldContent      = "content"
	fieldVector       = "vector"
	fieldSectionType  = "section_type"
	fieldSectionTitle = "section_title"
	fieldHierarchy    = "hierarchy_path"
	fieldMetadata     = "metadata"
)

// Store is a Milvus-backed dualindex.DenseStore.
type Store struct {
	client         *milvusclient.Client
	collectionName string
	dimension      int
}

var _ dualindex.DenseStore = (*Store)(nil)

// chunkMetadata mirrors the non-indexed fields of paper.Chunk and is written
// to the collection's JSON metadata column on Insert. Search requests that
// column but rowToChunk does not decode it: a hit's CharCount is recomputed
// from its content, and IsCompleteSection and UploadedAt are left zero.
type chunkMetadata struct {
	CharCount         int    `json:"char_count"`
	IsCompleteSection bool   `json:"is_complete_section"`
	UploadedAt        string `json:"uploaded_at"`
}

// New dials Milvus and returns a Store. Callers invoke CreateCollection
// before the first Insert to establish the collection schema.
func New(ctx context.Context, config *milvusclient.ClientConfig, collectionName string) (*Store, error) {
	client, err := milvusclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("milvus: connect: %w", err)
	}
	return &Store{client: client, collectionName: collectionName}, nil
}

// CreateCollection creates (or, if recreate, drops and recreates) the
// collection schema used to store chunk vectors.
func (s *Store) CreateCollection(ctx context.Context, dim int, recreate bool) error {
	s.dimension = dim

	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collectionName))
	if err != nil {
		return fmt.Errorf("milvus: check collection existence: %w", err)
	}
	if exists {
		if !recreate {
			return s.load(ctx)
		}
		if err := s.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(s.collectionName)); err != nil {
			return fmt.Errorf("milvus: drop collection: %w", err)
		}
	}

	schema := &entity.Schema{
		CollectionName: s.collectionName,
		Description:    "paper chunk dense index",
		AutoID:         false,
		Fields: []*entity.Field{
			entity.NewField().WithName(fieldChunkID).WithDataType(entity.FieldTypeVarChar).
				WithIsPrimaryKey(true).WithMaxLength(1024),
			entity.NewField().WithName(fieldPaperID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512),
			entity.NewField().WithName(fieldOrdinal).WithDataType(entity.FieldTypeInt64),
			entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535),
			entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)),
			entity.NewField().WithName(fieldSectionType).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64),
			entity.NewField().WithName(fieldSectionTitle).WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024),
			entity.NewField().WithName(fieldHierarchy).WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024),
			entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeJSON),
		},
	}

	indexOpt := milvusclient.NewCreateIndexOption(s.collectionName, fieldVector,
		index.NewHNSWIndex(entity.L2, 16, 128))
	if err := s.client.CreateCollection(ctx,
		milvusclient.NewCreateCollectionOption(s.collectionName, schema).WithIndexOptions(indexOpt)); err != nil {
		return fmt.Errorf("milvus: create collection: %w", err)
	}
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	task, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collectionName))
	if err != nil {
		return fmt.Errorf("milvus: load collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("milvus: await load: %w", err)
	}
	return nil
}

// Insert writes chunks and their embeddings as a single column-based batch.
func (s *Store) Insert(ctx context.Context, paperID string, chunks []paper.Chunk, embeddings [][]float32) error {
	n := len(chunks)
	chunkIDs := make([]string, n)
	paperIDs := make([]string, n)
	ordinals := make([]int64, n)
	contents := make([]string, n)
	sectionTypes := make([]string, n)
	sectionTitles := make([]string, n)
	hierarchyPaths := make([]string, n)
	metadataBytes := make([][]byte, n)

	for i, c := range chunks {
		chunkIDs[i] = c.ChunkID
		paperIDs[i] = c.PaperID
		ordinals[i] = int64(c.Ordinal)
		contents[i] = c.Content
		sectionTypes[i] = string(c.SectionType)
		sectionTitles[i] = c.SectionTitle
		hierarchyPaths[i] = c.HierarchyPath
		meta, err := json.Marshal(chunkMetadata{
			CharCount:         c.CharCount,
			IsCompleteSection: c.IsCompleteSection,
			UploadedAt:        c.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
		if err != nil {
			return fmt.Errorf("milvus: marshal metadata for %s: %w", c.ChunkID, err)
		}
		metadataBytes[i] = meta
	}

	insertOpt := milvusclient.NewColumnBasedInsertOption(s.collectionName).
		WithVarcharColumn(fieldChunkID, chunkIDs).
		WithVarcharColumn(fieldPaperID, paperIDs).
		WithInt64Column(fieldOrdinal, ordinals).
		WithVarcharColumn(fieldContent, contents).
		WithFloatVectorColumn(fieldVector, s.dimension, embeddings).
		WithVarcharColumn(fieldSectionType, sectionTypes).
		WithVarcharColumn(fieldSectionTitle, sectionTitles).
		WithVarcharColumn(fieldHierarchy, hierarchyPaths).
		WithColumns(column.NewColumnJSONBytes(fieldMetadata, metadataBytes))

	if _, err := s.client.Insert(ctx, insertOpt); err != nil {
		return fmt.Errorf("milvus: insert: %w", err)
	}
	return nil
}

// DeleteByPaper removes every row for paperID.
func (s *Store) DeleteByPaper(ctx context.Context, paperID string) error {
	expr := fmt.Sprintf("%s == %q", fieldPaperID, paperID)
	deleteOpt := milvusclient.NewDeleteOption(s.collectionName).WithExpr(expr)
	if _, err := s.client.Delete(ctx, deleteOpt); err != nil {
		return fmt.Errorf("milvus: delete by paper: %w", err)
	}
	return nil
}

// Search runs an ANN search for qv, optionally scoped to paperID.
func (s *Store) Search(ctx context.Context, qv []float32, k int, paperID string) ([]dualindex.DenseEntry, error) {
	searchOpt := milvusclient.NewSearchOption(s.collectionName, k, []entity.Vector{entity.FloatVector(qv)}).
		WithOutputFields(fieldChunkID, fieldPaperID, fieldOrdinal, fieldContent,
			fieldSectionType, fieldSectionTitle, fieldHierarchy, fieldMetadata)
	if paperID != "" {
		searchOpt = searchOpt.WithFilter(fmt.Sprintf("%s == %q", fieldPaperID, paperID))
	}

	results, err := s.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("milvus: search: %w", err)
	}

	var entries []dualindex.DenseEntry
	for _, rs := range results {
		for i := 0; i < rs.ResultCount; i++ {
			chunk, err := rowToChunk(rs, i)
			if err != nil {
				return nil, fmt.Errorf("milvus: decode result row %d: %w", i, err)
			}
			distance := float64(rs.Scores[i])
			entries = append(entries, dualindex.DenseEntry{
				Chunk:          chunk,
				Distance:       distance,
				RelevanceScore: 1 / (1 + distance),
			})
		}
	}
	return entries, nil
}

func rowToChunk(rs milvusclient.ResultSet, i int) (paper.Chunk, error) {
	get := func(field string) (any, error) { return rs.GetColumn(field).Get(i) }

	chunkID, err := get(fieldChunkID)
	if err != nil {
		return paper.Chunk{}, err
	}
	paperID, err := get(fieldPaperID)
	if err != nil {
		return paper.Chunk{}, err
	}
	ordinal, err := get(fieldOrdinal)
	if err != nil {
		return paper.Chunk{}, err
	}
	content, err := get(fieldContent)
	if err != nil {
		return paper.Chunk{}, err
	}
	sectionType, err := get(fieldSectionType)
	if err != nil {
		return paper.Chunk{}, err
	}
	sectionTitle, err := get(fieldSectionTitle)
	if err != nil {
		return paper.Chunk{}, err
	}
	hierarchyPath, err := get(fieldHierarchy)
	if err != nil {
		return paper.Chunk{}, err
	}

	return paper.Chunk{
		ChunkID:       chunkID.(string),
		PaperID:       paperID.(string),
		Ordinal:       int(ordinal.(int64)),
		Content:       content.(string),
		SectionType:   paper.SectionType(sectionType.(string)),
		SectionTitle:  sectionTitle.(string),
		HierarchyPath: hierarchyPath.(string),
		CharCount:     len([]rune(content.(string))),
	}, nil
}

// Close releases the underlying Milvus client connection.
func (s *Store) Close() error {
	return s.client.Close(context.Background())
}
