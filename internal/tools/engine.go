// Package tools executes capability requests against ranked provider chains
// with per-attempt timeouts and fallback. Retry policy lives here once, not
// per integration.
package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

// ErrProviderExhausted is the task-level failure after every provider in the
// chain has been tried.
var ErrProviderExhausted = errors.New("all tool providers exhausted")

// ErrUnknownTool is returned for a tool with no registered chain.
var ErrUnknownTool = errors.New("unknown tool")

// Provider executes one capability. Providers are swappable and ranked by
// the engine; they carry no fallback logic of their own.
type Provider interface {
	Name() string
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

type chain struct {
	providers []Provider
	timeout   time.Duration
}

// Engine owns the tool catalog and the invocation discipline.
type Engine struct {
	store          *mission.Store
	chains         map[string]chain
	defaultTimeout time.Duration
}

func NewEngine(store *mission.Store, defaultTimeout time.Duration) *Engine {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &Engine{
		store:          store,
		chains:         make(map[string]chain),
		defaultTimeout: defaultTimeout,
	}
}

// Register installs the ranked provider chain for a tool. A zero timeout
// uses the engine default. Registering again replaces the chain.
func (e *Engine) Register(tool string, timeout time.Duration, providers ...Provider) {
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	e.chains[tool] = chain{providers: providers, timeout: timeout}
}

// Has reports whether a chain is registered for the tool.
func (e *Engine) Has(tool string) bool {
	_, ok := e.chains[tool]
	return ok
}

// Invoke runs the tool against its chain in rank order. Each attempt gets an
// independent timeout; a timeout or provider error advances the chain. Every
// attempt is appended to the call's audit trail. The returned ToolCall is the
// final recorded snapshot.
func (e *Engine) Invoke(ctx context.Context, taskID, tool string, params map[string]any) (mission.ToolCall, error) {
	call := mission.ToolCall{
		ID:        uuid.New().String()[:8],
		TaskID:    taskID,
		Tool:      tool,
		Params:    copyParams(params), // immutable once submitted
		Status:    mission.ToolCallRunning,
		StartedAt: time.Now(),
	}

	ch, ok := e.chains[tool]
	if !ok {
		call.Status = mission.ToolCallFailed
		call.Error = fmt.Sprintf("no provider chain for tool %q", tool)
		e.record(call)
		return call, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}
	e.record(call)

	for _, p := range ch.providers {
		if err := ctx.Err(); err != nil {
			return e.finishCancelled(call), err
		}

		attempt := mission.Attempt{Provider: p.Name(), StartedAt: time.Now()}
		attemptCtx, cancel := context.WithTimeout(ctx, ch.timeout)
		result, err := p.Execute(attemptCtx, call.Params)
		cancel()
		attempt.EndedAt = time.Now()

		if err == nil {
			call.Attempts = append(call.Attempts, attempt)
			call.Status = mission.ToolCallCompleted
			call.Provider = p.Name() // provenance for downstream consumers
			call.Result = result
			now := time.Now()
			call.EndedAt = &now
			e.record(call)
			return call, nil
		}

		if ctx.Err() != nil {
			// The mission was cancelled, not the attempt's own timeout.
			attempt.Error = ctx.Err().Error()
			call.Attempts = append(call.Attempts, attempt)
			return e.finishCancelled(call), ctx.Err()
		}

		attempt.Error = err.Error()
		call.Attempts = append(call.Attempts, attempt)
	}

	call.Status = mission.ToolCallFailed
	call.Error = fmt.Sprintf("%d provider(s) failed", len(ch.providers))
	now := time.Now()
	call.EndedAt = &now
	e.record(call)
	return call, fmt.Errorf("%w: tool %s after %d attempts", ErrProviderExhausted, tool, len(call.Attempts))
}

func (e *Engine) finishCancelled(call mission.ToolCall) mission.ToolCall {
	call.Status = mission.ToolCallCancelled
	call.Error = "cancelled"
	now := time.Now()
	call.EndedAt = &now
	e.record(call)
	return call
}

func (e *Engine) record(call mission.ToolCall) {
	if e.store != nil {
		_ = e.store.RecordToolCall(call)
	}
}

func copyParams(params map[string]any) map[string]any {
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return cp
}
