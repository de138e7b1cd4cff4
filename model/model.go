//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

import "context"

// Model is implemented by every chat completion backend (OpenAI and
// OpenAI-compatible providers). GenerateContent always returns a channel:
// non-streaming callers simply drain it for the single final chunk.
type Model interface {
	// GenerateContent issues req and streams the response back one chunk
	// at a time. The channel is closed once the final chunk (Done==true)
	// has been sent or ctx is done.
	GenerateContent(ctx context.Context, req *Request) (<-chan *Response, error)

	// Info returns static information about the backing model.
	Info() Info
}

// Info describes a model backend.
type Info struct {
	Name string
}
