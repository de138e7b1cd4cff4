//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package memorystack

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CheckpointTuple is a single saved conversation checkpoint: the state at a
// point in a thread's history, plus any pending writes queued against it.
type CheckpointTuple struct {
	ThreadID     string          `json:"thread_id"`
	CheckpointID string          `json:"checkpoint_id"`
	State        json.RawMessage `json:"state"`
	Writes       []Write         `json:"writes,omitempty"`
}

// Write is a single pending side-effect recorded against a checkpoint
// before it is applied to State.
type Write struct {
	Channel string          `json:"channel"`
	Value   json.RawMessage `json:"value"`
}

// CheckpointStore implements the get_tuple/put/put_writes/list checkpointer
// contract against Redis, one hash key per thread holding its
// checkpoint history.
type CheckpointStore struct {
	client *redis.Client
}

// NewCheckpointStore wraps an existing Redis client.
func NewCheckpointStore(client *redis.Client) *CheckpointStore {
	return &CheckpointStore{client: client}
}

func checkpointsKey(threadID string) string {
	return fmt.Sprintf("checkpoint:%s", threadID)
}

// Put stores or overwrites a checkpoint for the given thread/checkpoint ID.
func (s *CheckpointStore) Put(ctx context.Context, threadID, checkpointID string, state json.RawMessage) error {
	tuple := CheckpointTuple{ThreadID: threadID, CheckpointID: checkpointID, State: state}
	data, err := json.Marshal(tuple)
	if err != nil {
		return fmt.Errorf("memorystack: marshal checkpoint: %w", err)
	}
	if err := s.client.HSet(ctx, checkpointsKey(threadID), checkpointID, data).Err(); err != nil {
		return fmt.Errorf("memorystack: put checkpoint: %w", err)
	}
	return nil
}

// PutWrites appends pending writes to an existing checkpoint without
// replacing its State.
func (s *CheckpointStore) PutWrites(ctx context.Context, threadID, checkpointID string, writes []Write) error {
	tuple, err := s.GetTuple(ctx, threadID, checkpointID)
	if err != nil {
		return fmt.Errorf("memorystack: put writes: %w", err)
	}
	tuple.Writes = append(tuple.Writes, writes...)
	data, err := json.Marshal(tuple)
	if err != nil {
		return fmt.Errorf("memorystack: marshal checkpoint: %w", err)
	}
	if err := s.client.HSet(ctx, checkpointsKey(threadID), checkpointID, data).Err(); err != nil {
		return fmt.Errorf("memorystack: put writes: %w", err)
	}
	return nil
}

// GetTuple returns a single checkpoint by ID.
func (s *CheckpointStore) GetTuple(ctx context.Context, threadID, checkpointID string) (*CheckpointTuple, error) {
	data, err := s.client.HGet(ctx, checkpointsKey(threadID), checkpointID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("memorystack: checkpoint %s/%s not found", threadID, checkpointID)
		}
		return nil, fmt.Errorf("memorystack: get checkpoint: %w", err)
	}
	var tuple CheckpointTuple
	if err := json.Unmarshal(data, &tuple); err != nil {
		return nil, fmt.Errorf("memorystack: unmarshal checkpoint: %w", err)
	}
	return &tuple, nil
}

// List returns every checkpoint stored for threadID, in no particular order
// (callers sort by CheckpointID if ordering matters).
func (s *CheckpointStore) List(ctx context.Context, threadID string) ([]CheckpointTuple, error) {
	raw, err := s.client.HGetAll(ctx, checkpointsKey(threadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("memorystack: list checkpoints: %w", err)
	}
	tuples := make([]CheckpointTuple, 0, len(raw))
	for _, data := range raw {
		var tuple CheckpointTuple
		if err := json.Unmarshal([]byte(data), &tuple); err != nil {
			return nil, fmt.Errorf("memorystack: unmarshal checkpoint: %w", err)
		}
		tuples = append(tuples, tuple)
	}
	return tuples, nil
}

// Delete removes every checkpoint stored for threadID.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, checkpointsKey(threadID)).Err(); err != nil {
		return fmt.Errorf("memorystack: delete checkpoints: %w", err)
	}
	return nil
}
