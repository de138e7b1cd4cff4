//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/researchagent/backend/agentloop"
)

// sseWriter frames one `event: <type>\ndata: <json-or-text>\n\n` record per
// write and flushes immediately, so a slow client never buffers behind a
// fast producer.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("server: streaming unsupported by response writer")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) writeEvent(event string, data any) {
	var payload []byte
	switch v := data.(type) {
	case string:
		payload = []byte(v)
	default:
		payload, _ = json.Marshal(v)
	}
	fmt.Fprintf(s.w, "event: %s\n", event)
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
}

// streamAgentEvents relays every agentloop.StreamEvent to w as an SSE event
// (RunCompleted as "answer_end", RunError as "error"), then writes a
// terminal "done" event once the channel closes.
func streamAgentEvents(w http.ResponseWriter, events <-chan agentloop.StreamEvent) error {
	sse, err := newSSEWriter(w)
	if err != nil {
		return err
	}

	for ev := range events {
		switch e := ev.(type) {
		case agentloop.RunStarted:
			sse.writeEvent("conversation", e)
		case agentloop.ReasoningStep:
			sse.writeEvent("node_start", e)
		case agentloop.ToolCallStarted:
			sse.writeEvent("tool_call_started", e)
		case agentloop.ToolCallResult:
			sse.writeEvent("tool_call_result", e)
		case agentloop.ToolCallDegraded:
			sse.writeEvent("tool_call_degraded", e)
		case agentloop.RetrievalResult:
			sse.writeEvent("retrieval_result", e)
		case agentloop.Citation:
			sse.writeEvent("citation", e)
		case agentloop.ResponseToken:
			sse.writeEvent("token", e.Token)
		case agentloop.MaxIterationsReached:
			sse.writeEvent("max_iterations", e)
		case agentloop.RunError:
			sse.writeEvent("error", map[string]string{"error": e.Message})
		case agentloop.RunCompleted:
			sse.writeEvent("answer_end", e)
		}
	}
	sse.writeEvent("done", "")
	return nil
}
