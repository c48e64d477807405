// Package middleware decorates tools with cross-cutting behaviour: call
// logging, rate limiting and parameter validation. Wrapped tools satisfy the
// same interface and register like any other tool.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ragweave/ragweave/pkg/logging"
	"github.com/ragweave/ragweave/tool"
)

// ErrRateLimitExceeded indicates the wrapped tool's call budget is spent.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Middleware wraps a tool execution.
type Middleware func(next tool.Tool) tool.Tool

// Wrap applies middlewares to a tool, first listed outermost.
func Wrap(t tool.Tool, middlewares ...Middleware) tool.Tool {
	for i := len(middlewares) - 1; i >= 0; i-- {
		t = middlewares[i](t)
	}
	return t
}

// wrapped keeps the inner tool's identity while overriding Execute.
type wrapped struct {
	tool.Tool
	execute func(ctx context.Context, params, query string) (string, error)
}

func (w *wrapped) Execute(ctx context.Context, params, query string) (string, error) {
	return w.execute(ctx, params, query)
}

// Logging records each call's duration and outcome.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = logging.WithComponent("tool")
	}
	return func(next tool.Tool) tool.Tool {
		return &wrapped{Tool: next, execute: func(ctx context.Context, params, query string) (string, error) {
			start := time.Now()
			result, err := next.Execute(ctx, params, query)
			if err != nil {
				logger.Warn("tool call failed", "tool", next.Name(), "duration", time.Since(start), "error", err)
				return result, err
			}
			logger.Info("tool call succeeded", "tool", next.Name(), "duration", time.Since(start), "result_chars", len(result))
			return result, nil
		}}
	}
}

// RateLimit fails calls after maxCalls executions. Reset with the returned
// limiter.
type Limiter struct {
	mu       sync.Mutex
	maxCalls int
	counter  int
}

// NewLimiter creates a call-budget limiter shared by its middlewares.
func NewLimiter(maxCalls int) *Limiter {
	return &Limiter{maxCalls: maxCalls}
}

// Reset restores the call budget.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counter = 0
}

// Count returns how many calls have been admitted.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counter
}

func (l *Limiter) admit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counter >= l.maxCalls {
		return ErrRateLimitExceeded
	}
	l.counter++
	return nil
}

// RateLimit bounds how many times the wrapped tool may run.
func RateLimit(limiter *Limiter) Middleware {
	return func(next tool.Tool) tool.Tool {
		return &wrapped{Tool: next, execute: func(ctx context.Context, params, query string) (string, error) {
			if err := limiter.admit(); err != nil {
				return "", fmt.Errorf("tool %s: %w", next.Name(), err)
			}
			return next.Execute(ctx, params, query)
		}}
	}
}

// MaxParamChars rejects oversized parameter payloads before they reach the
// tool.
func MaxParamChars(limit int) Middleware {
	return func(next tool.Tool) tool.Tool {
		return &wrapped{Tool: next, execute: func(ctx context.Context, params, query string) (string, error) {
			if limit > 0 && len(params) > limit {
				return "", fmt.Errorf("tool %s: parameters exceed %d characters", next.Name(), limit)
			}
			return next.Execute(ctx, params, query)
		}}
	}
}
