//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package circuitbreaker wraps each external tool call (paper search,
// semantic search, LLM call) with a gobreaker circuit breaker and a
// degraded-response/alternatives protocol gobreaker does not itself
// provide.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/researchagent/backend/log"
)

// Config carries the spec's named breaker parameters, reconciled below onto
// gobreaker's MaxRequests/Interval/Timeout/ReadyToTrip knobs.
type Config struct {
	// FailThreshold is the number of consecutive failures that opens the
	// breaker.
	FailThreshold uint32
	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration
	// HalfOpenMaxCalls is recorded but not applied: New wires gobreaker's
	// single MaxRequests knob to SuccessThreshold, which therefore also
	// bounds how many trial calls are allowed while half-open.
	HalfOpenMaxCalls uint32
	// SuccessThreshold is how many consecutive half-open successes close
	// the breaker again.
	SuccessThreshold uint32
}

// DefaultConfig mirrors commonly used defaults for a tool-call breaker.
var DefaultConfig = Config{
	FailThreshold:    5,
	ResetTimeout:     30 * time.Second,
	HalfOpenMaxCalls: 3,
	SuccessThreshold: 2,
}

// Result is the outcome of a Tool.Call invocation: either the wrapped call's
// normal result, or a degraded response when the breaker is open.
type Result struct {
	Value       any
	IsDegraded  bool
	DurationMS  int64
	Alternative string
}

// Tool wraps a single named external dependency (one tool, one LLM route)
// behind a circuit breaker.
type Tool struct {
	name        string
	cb          *gobreaker.CircuitBreaker
	alternative string
	settings    gobreaker.Settings
}

// New builds a Tool named name with cfg's thresholds. alternative is
// surfaced in the degraded Result when the breaker is open, describing a
// fallback the caller can try instead.
func New(name string, cfg Config, alternative string) *Tool {
	settings := gobreaker.Settings{
		Name: name,
		// gobreaker's MaxRequests does double duty: it bounds concurrent
		// trial calls while half-open AND is the number of consecutive
		// successes that closes the breaker again. The two are distinct
		// knobs in Config; gobreaker only exposes the close-threshold
		// behavior, so that's the one MaxRequests must carry.
		MaxRequests: cfg.SuccessThreshold,
		Interval:    0, // never reset failure counts while closed
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info(fmt.Sprintf("circuitbreaker: %s %s -> %s", name, from, to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}
	return &Tool{
		name:        name,
		cb:          gobreaker.NewCircuitBreaker(settings),
		alternative: alternative,
		settings:    settings,
	}
}

// Call runs fn through the breaker. When the breaker is open, Call returns a
// degraded Result immediately (duration_ms=0, is_degraded=true) instead of
// invoking fn or returning an error.
func (t *Tool) Call(ctx context.Context, fn func(ctx context.Context) (any, error)) (Result, error) {
	start := time.Now()
	value, err := t.cb.Execute(func() (any, error) { return fn(ctx) })
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Result{
				IsDegraded:  true,
				DurationMS:  0,
				Alternative: t.alternative,
			}, nil
		}
		return Result{}, fmt.Errorf("circuitbreaker: %s: %w", t.name, err)
	}
	return Result{
		Value:      value,
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// State reports the breaker's current state for observability surfaces.
func (t *Tool) State() string {
	return t.cb.State().String()
}

// Counts reports the breaker's current request/failure counters.
func (t *Tool) Counts() gobreaker.Counts {
	return t.cb.Counts()
}

// Name returns the breaker's registered tool name.
func (t *Tool) Name() string {
	return t.name
}

// Reset forces the breaker back to closed, discarding its counters. gobreaker
// has no built-in forced-reset, so this rebuilds the underlying breaker from
// its original settings.
func (t *Tool) Reset() {
	t.cb = gobreaker.NewCircuitBreaker(t.settings)
}
