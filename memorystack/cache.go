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
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/researchagent/backend/log"
)

// DefaultCacheQueueDepth bounds how many pending writes the conversation
// cache's write-behind worker will buffer before Enqueue blocks.
const DefaultCacheQueueDepth = 256

type cacheWrite struct {
	threadID string
	turn     Turn
}

// ConversationCache persists recent turns to Redis off the request path: a
// single background worker drains a bounded queue, so callers never wait on
// the Redis round trip.
type ConversationCache struct {
	client *redis.Client
	queue  chan cacheWrite
	depth  atomic.Int64
	done   chan struct{}
}

// NewConversationCache starts the write-behind worker and returns a
// ConversationCache. Call Close to stop the worker.
func NewConversationCache(client *redis.Client) *ConversationCache {
	c := &ConversationCache{
		client: client,
		queue:  make(chan cacheWrite, DefaultCacheQueueDepth),
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *ConversationCache) run() {
	defer close(c.done)
	for w := range c.queue {
		c.depth.Add(-1)
		if err := c.persist(context.Background(), w); err != nil {
			log.Error(fmt.Sprintf("memorystack: conversation cache persist failed for thread %s: %v", w.threadID, err))
		}
	}
}

func (c *ConversationCache) persist(ctx context.Context, w cacheWrite) error {
	data, err := json.Marshal(w.turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := fmt.Sprintf("conversation:%s", w.threadID)
	if err := c.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// Enqueue schedules turn to be persisted for threadID. It returns
// immediately; the write happens asynchronously on the background worker.
func (c *ConversationCache) Enqueue(threadID string, turn Turn) {
	c.depth.Add(1)
	c.queue <- cacheWrite{threadID: threadID, turn: turn}
}

// QueueDepth reports the number of writes not yet persisted, for
// observability.
func (c *ConversationCache) QueueDepth() int64 {
	return c.depth.Load()
}

// Recent returns the last n persisted turns for threadID, oldest first.
func (c *ConversationCache) Recent(ctx context.Context, threadID string, n int) ([]Turn, error) {
	key := fmt.Sprintf("conversation:%s", threadID)
	raw, err := c.client.LRange(ctx, key, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("memorystack: recent turns: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, data := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("memorystack: unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Close stops the background worker, blocking until the queue drains.
func (c *ConversationCache) Close() error {
	close(c.queue)
	<-c.done
	return nil
}

func userThreadsKey(userID string) string {
	return fmt.Sprintf("user_threads:%s", userID)
}

// Touch records threadID as belonging to userID, so it is returned by a
// later Threads(userID) call. Safe to call on every turn; SAdd is idempotent.
func (c *ConversationCache) Touch(ctx context.Context, userID, threadID string) error {
	if err := c.client.SAdd(ctx, userThreadsKey(userID), threadID).Err(); err != nil {
		return fmt.Errorf("memorystack: touch thread: %w", err)
	}
	return nil
}

// Threads lists every thread ID registered for userID via Touch.
func (c *ConversationCache) Threads(ctx context.Context, userID string) ([]string, error) {
	ids, err := c.client.SMembers(ctx, userThreadsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("memorystack: list threads: %w", err)
	}
	return ids, nil
}

// Delete removes a thread's persisted turns and its membership in userID's
// thread set. The checkpoint history and rolling summary live elsewhere
// (CheckpointStore, Stack) and are the caller's responsibility to clear too.
func (c *ConversationCache) Delete(ctx context.Context, userID, threadID string) error {
	key := fmt.Sprintf("conversation:%s", threadID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("memorystack: delete thread: %w", err)
	}
	if err := c.client.SRem(ctx, userThreadsKey(userID), threadID).Err(); err != nil {
		return fmt.Errorf("memorystack: delete thread membership: %w", err)
	}
	return nil
}
