// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the LLM-driven agent loop and configuration options.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	agentctx "github.com/orbitune/agentrt/pkg/context"
	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/dag"
	"github.com/orbitune/agentrt/pkg/llm"
	"github.com/orbitune/agentrt/pkg/longmem"
	"github.com/orbitune/agentrt/pkg/resilience"
	"github.com/orbitune/agentrt/pkg/store"
)

const (
	// defaultMaxIterations bounds the think-act loop when no override is set.
	defaultMaxIterations = 10

	// defaultToolTimeout is the hard per-tool-call budget spec.md §5 requires.
	defaultToolTimeout = 60 * time.Second

	// defaultSystemPrompt is the project's fixed guidance prefixed to every
	// run's system message, ahead of any retrieved long-term memories.
	defaultSystemPrompt = "You are an autonomous orchestration agent. Use the available tools " +
		"when they help answer the request, think before acting, and give a direct final answer " +
		"once you have enough information."
)

// ToolRegistry is the subset of pkg/registry.Registry the loop depends on:
// advertising tool descriptors and dispatching a call by name.
type ToolRegistry interface {
	GetToolDescriptors() []core.ToolDescriptor
	ExecuteAction(ctx context.Context, toolName string, params map[string]any) (any, error)
}

// LongTermMemory is the subset of pkg/longmem.Memory the loop depends on for
// the memory_remember/memory_recall built-ins and system-prompt augmentation.
type LongTermMemory interface {
	Remember(ctx context.Context, content string, metadata map[string]any, sessionID string) (string, error)
	Search(ctx context.Context, query string, limit int) ([]longmem.Entry, error)
}

// Attachment is a named reference accompanying a user turn. The wire
// message shape (llm.Message) carries text only, so attachments are folded
// into the user turn's content as a manifest line rather than a first-class
// multimodal part.
type Attachment struct {
	Name     string
	MimeType string
	URI      string
}

// RunInput is one turn's request to the loop.
type RunInput struct {
	SessionID   string
	UserID      string
	Input       string
	History     []llm.Message
	Attachments []Attachment
}

// Agent drives the bounded LLM tool-calling loop described by spec.md §4.8:
// compose the system prompt, fit the context window, assemble tool
// descriptors, then iterate stream-call/dispatch/observe until the model
// stops calling tools or the iteration cap is hit.
type Agent struct {
	id string

	// mu guards model and logger, the two fields a live config-watch reload
	// (cmd/orchestrator's --watch flag) swaps out on a running agent between
	// turns.
	mu     sync.RWMutex
	model  string
	logger *slog.Logger

	provider   llm.Provider
	contextMgr *agentctx.Manager
	tools      ToolRegistry
	memory     LongTermMemory
	tasks      store.TaskRepo
	dagRunner  *dag.Executor

	systemPrompt  string
	maxIterations int
	toolTimeout   time.Duration

	// breakers holds one *resilience.CircuitBreaker per external tool name,
	// created lazily on the first external call to that tool name.
	breakers sync.Map

	tracer  trace.Tracer
	emitter core.EventEmitter
}

// Option configures an Agent at construction time.
type Option func(*Agent)

// WithSystemPrompt overrides the fixed guidance prefixed to every run.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithContextManager attaches the sliding-window context fitter. Without
// one, a generous default budget is used.
func WithContextManager(m *agentctx.Manager) Option {
	return func(a *Agent) { a.contextMgr = m }
}

// WithToolRegistry attaches the skill registry consulted for every
// non-built-in tool call.
func WithToolRegistry(r ToolRegistry) Option {
	return func(a *Agent) { a.tools = r }
}

// WithLongTermMemory enables memory_remember/memory_recall and system-prompt
// memory augmentation.
func WithLongTermMemory(m LongTermMemory) Option {
	return func(a *Agent) { a.memory = m }
}

// WithTaskStore enables the dag_create_task/dag_get_status built-ins.
func WithTaskStore(tasks store.TaskRepo) Option {
	return func(a *Agent) { a.tasks = tasks }
}

// WithDAGExecutor enables the dag_execute built-in, which runs the session's
// task graph to completion and folds its settlement events into the run.
func WithDAGExecutor(ex *dag.Executor) Option {
	return func(a *Agent) { a.dagRunner = ex }
}

// WithMaxIterations overrides the default iteration cap of 10.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithToolTimeout overrides the default 60-second per-tool-call budget.
func WithToolTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.toolTimeout = d
		}
	}
}

// WithLogger attaches a structured logger; without one, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithEventEmitter attaches a side-channel observer (telemetry, audit) that
// receives every event alongside the run's own channel.
func WithEventEmitter(e core.EventEmitter) Option {
	return func(a *Agent) { a.emitter = e }
}

// New creates an Agent identified by id, calling model via provider.
func New(id string, provider llm.Provider, model string, opts ...Option) *Agent {
	a := &Agent{
		id:            id,
		model:         model,
		provider:      provider,
		systemPrompt:  defaultSystemPrompt,
		maxIterations: defaultMaxIterations,
		toolTimeout:   defaultToolTimeout,
		logger:        slog.Default(),
		tracer:        otel.Tracer("agentrt/agent"),
		emitter:       core.NoopEventEmitter{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.contextMgr == nil {
		a.contextMgr = agentctx.New(8000, 1000)
	}
	return a
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.id }

// SetModel swaps the model used by every run started after this call
// returns. Safe to call while other runs are in flight; a run already past
// its LLM call keeps the model it started with.
func (a *Agent) SetModel(model string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = model
}

// SetLogger swaps the structured logger used by every run started after
// this call returns.
func (a *Agent) SetLogger(logger *slog.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = logger
}

func (a *Agent) currentModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

func (a *Agent) currentLogger() *slog.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logger
}

// breakerFor returns the circuit breaker guarding calls to the named
// external tool, creating it on first use. A tool that keeps failing trips
// its breaker after 5 consecutive failures and stays open for 30s, so a
// wedged skill source stops eating the full per-call timeout on every turn.
func (a *Agent) breakerFor(name string) *resilience.CircuitBreaker {
	if cb, ok := a.breakers.Load(name); ok {
		return cb.(*resilience.CircuitBreaker)
	}
	cb, _ := a.breakers.LoadOrStore(name, resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: name}))
	return cb.(*resilience.CircuitBreaker)
}
