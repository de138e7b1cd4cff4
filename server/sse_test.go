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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/researchagent/backend/agentloop"
)

func TestStreamAgentEvents_EndsWithDone(t *testing.T) {
	rec := httptest.NewRecorder()
	events := make(chan agentloop.StreamEvent, 4)
	events <- agentloop.RunStarted{InvocationID: "inv-1"}
	events <- agentloop.ResponseToken{Token: "hi"}
	events <- agentloop.RunCompleted{InvocationID: "inv-1", FinalAnswer: "hi"}
	close(events)

	err := streamAgentEvents(rec, events)
	assert.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "event: conversation\n")
	assert.Contains(t, body, "event: token\ndata: hi\n\n")
	assert.Contains(t, body, "event: answer_end\n")
	assert.Contains(t, body, "event: done\n")
}

func TestStreamAgentEvents_Error(t *testing.T) {
	rec := httptest.NewRecorder()
	events := make(chan agentloop.StreamEvent, 1)
	events <- agentloop.RunError{Message: "tool exploded"}
	close(events)

	err := streamAgentEvents(rec, events)
	assert.NoError(t, err)
	assert.Contains(t, rec.Body.String(), `"error":"tool exploded"`)
}
