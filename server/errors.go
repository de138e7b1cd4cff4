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
	"errors"
	"net/http"

	"github.com/researchagent/backend/log"
)

// Sentinel errors a handler returns to drive writeError's status mapping.
// Wrap a richer error with fmt.Errorf("...: %w", ErrNotFound); the client
// sees the full wrapped message as the error body.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type errorBody struct {
	Error string `json:"error"`
}

type httpError struct {
	status int
	body   errorBody
}

// classify maps a domain error to its HTTP status, per the propagation
// policy: validation/auth/not-found surface directly, everything else not
// already mapped degrades to 500 with a short message.
func classify(err error) httpError {
	switch {
	case errors.Is(err, ErrValidation):
		return httpError{status: http.StatusBadRequest, body: errorBody{Error: err.Error()}}
	case errors.Is(err, ErrUnauthorized):
		return httpError{status: http.StatusUnauthorized, body: errorBody{Error: err.Error()}}
	case errors.Is(err, ErrForbidden):
		return httpError{status: http.StatusForbidden, body: errorBody{Error: err.Error()}}
	case errors.Is(err, ErrNotFound):
		return httpError{status: http.StatusNotFound, body: errorBody{Error: err.Error()}}
	default:
		return httpError{status: http.StatusInternalServerError, body: errorBody{Error: "internal error"}}
	}
}

// writeError logs the full error and writes the classified status/body to w.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	he := classify(err)
	if he.status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "server: "+err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.body)
}

// writeJSON writes v as a JSON body with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
