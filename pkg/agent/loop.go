// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"

	agentctx "github.com/orbitune/agentrt/pkg/context"
	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/errors"
	"github.com/orbitune/agentrt/pkg/llm"
	"github.com/orbitune/agentrt/pkg/resilience"
	"github.com/orbitune/agentrt/pkg/telemetry"
)

// stepLimitNotice is the synthetic answer emitted when the iteration cap is
// exhausted without the model producing a tool-free response.
const stepLimitNotice = "I've reached my step limit for this task. Could you clarify or split the request into smaller steps?"

// Run drives one turn of the agent loop and returns a channel of execution
// events. The channel is closed when the run ends: on a tool-free answer,
// on exhausting maxIterations, on an unrecoverable LLM error, or on ctx
// cancellation (in which case no terminal event is guaranteed to be sent).
func (a *Agent) Run(ctx context.Context, in RunInput) <-chan core.Event {
	events := make(chan core.Event, 32)
	go func() {
		defer close(events)
		a.run(ctx, in, events)
	}()
	return events
}

func (a *Agent) run(ctx context.Context, in RunInput, events chan<- core.Event) {
	ctx, runID := core.EnsureRunID(ctx)
	emit := func(ev core.Event) {
		if ev.RunID == "" {
			ev.RunID = runID
		}
		if ev.SessionID == "" {
			ev.SessionID = in.SessionID
		}
		events <- ev
		a.emitter.Emit(ctx, ev)
	}

	model := a.currentModel()
	systemMsg := llm.Message{Role: llm.RoleSystem, Content: a.composeSystemPrompt(ctx, in.Input)}
	current := []llm.Message{{Role: llm.RoleUser, Content: composeUserContent(in.Input, in.Attachments)}}

	summarizer := agentctx.ProviderSummarizer{Provider: a.provider, Model: model}
	messages, err := a.contextMgr.Fit(ctx, systemMsg, in.History, current, summarizer)
	if err != nil {
		emit(core.ErrorEvent(runID, err))
		return
	}

	tools := a.toolDescriptors()
	llmTools := make([]llm.Tool, len(tools))
	for i, d := range tools {
		llmTools[i] = d.ToLLMTool()
	}

	for iter := 1; iter <= a.maxIterations; iter++ {
		if ctx.Err() != nil {
			return
		}

		iterCtx, span := a.tracer.Start(ctx, "Agent.Iteration",
			trace.WithAttributes(telemetry.AgentAttributes(a.id, "", model, runID, iter, a.maxIterations)...))
		text, toolCalls, err := a.streamChat(iterCtx, model, messages, llmTools, emit, runID)
		span.End()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			emit(core.ErrorEvent(runID, WrapLLMError(err, model)))
			return
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: text, ToolCalls: toolCalls})

		if len(toolCalls) == 0 {
			emit(core.AnswerEvent(runID, text))
			return
		}

		for _, tc := range toolCalls {
			reply := a.dispatchToolCall(ctx, runID, in.SessionID, tc, emit)
			messages = append(messages, llm.Message{Role: llm.RoleTool, Content: reply, ToolCallID: tc.ID})
		}
	}

	emit(core.AnswerEvent(runID, stepLimitNotice))
}

// composeSystemPrompt appends up to three highest-ranked long-term
// memories matching input verbatim, as bullets after the base prompt. Retrieval failure is
// logged and ignored per spec.md §4.8 step 1.
func (a *Agent) composeSystemPrompt(ctx context.Context, input string) string {
	if a.memory == nil {
		return a.systemPrompt
	}
	entries, err := a.memory.Search(ctx, input, 3)
	if err != nil {
		a.currentLogger().Warn("agent: long-term memory retrieval failed, continuing without it", "error", err)
		return a.systemPrompt
	}
	if len(entries) == 0 {
		return a.systemPrompt
	}

	var b strings.Builder
	b.WriteString(a.systemPrompt)
	b.WriteString("\n\nRelevant memories:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s\n", e.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// composeUserContent folds attachment references into the turn's text,
// since llm.Message carries plain text rather than multimodal parts.
func composeUserContent(input string, attachments []Attachment) string {
	if len(attachments) == 0 {
		return input
	}
	var b strings.Builder
	b.WriteString(input)
	b.WriteString("\n\nAttachments:\n")
	for _, at := range attachments {
		fmt.Fprintf(&b, "- %s (%s): %s\n", at.Name, at.MimeType, at.URI)
	}
	return strings.TrimRight(b.String(), "\n")
}

// streamChat drives one LLM call, preferring a streaming provider so
// content events can be emitted incrementally, and falling back to a
// single non-streaming Chat call otherwise.
func (a *Agent) streamChat(ctx context.Context, model string, messages []llm.Message, tools []llm.Tool, emit func(core.Event), runID string) (string, []llm.ToolCall, error) {
	req := llm.ChatRequest{Model: model, Messages: messages, Tools: tools}

	sp, ok := a.provider.(llm.StreamingProvider)
	if !ok {
		resp, err := a.provider.Chat(ctx, req)
		if err != nil {
			return "", nil, err
		}
		if resp.Content != "" {
			emit(core.ContentEvent(runID, resp.Content))
		}
		return resp.Content, resp.ToolCalls, nil
	}

	chunks, err := sp.ChatStream(ctx, req)
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var toolCalls []llm.ToolCall
	for chunk := range chunks {
		if chunk.Error != nil {
			return text.String(), toolCalls, chunk.Error
		}
		if chunk.Content != "" {
			text.WriteString(chunk.Content)
			emit(core.ContentEvent(runID, chunk.Content))
		}
		if len(chunk.ToolCalls) > 0 {
			toolCalls = chunk.ToolCalls
		}
	}
	return text.String(), toolCalls, nil
}

// dispatchToolCall routes one tool-call to its built-in handler or to the
// skill registry, and returns the text for the tool-role reply message.
func (a *Agent) dispatchToolCall(ctx context.Context, runID, sessionID string, tc llm.ToolCall, emit func(core.Event)) string {
	name := tc.Function.Name
	args := tc.Function.Arguments

	switch name {
	case toolPlanTask:
		return a.handlePlanTask(runID, args, emit).reply
	case toolMemoryRemember:
		return emitObservation(emit, runID, tc.ID, a.handleMemoryRemember(ctx, sessionID, args))
	case toolMemoryRecall:
		return emitObservation(emit, runID, tc.ID, a.handleMemoryRecall(ctx, args))
	case toolDAGCreateTask:
		return emitObservation(emit, runID, tc.ID, a.handleDAGCreateTask(ctx, sessionID, args))
	case toolDAGGetStatus:
		return emitObservation(emit, runID, tc.ID, a.handleDAGGetStatus(ctx, sessionID))
	case toolDAGExecute:
		return emitObservation(emit, runID, tc.ID, a.handleDAGExecute(ctx, runID, sessionID, emit))
	default:
		return a.dispatchExternalTool(ctx, runID, name, args, tc.ID, emit)
	}
}

func emitObservation(emit func(core.Event), runID, toolID, result string) string {
	emit(core.ObservationEvent(runID, toolID, result, strings.HasPrefix(result, "Error:")))
	return result
}

// dispatchExternalTool executes a source.action call through the skill
// registry with the 60-second (or configured) hard per-call timeout.
func (a *Agent) dispatchExternalTool(ctx context.Context, runID, name, argsJSON, toolID string, emit func(core.Event)) string {
	input, err := parseToolArgs(argsJSON)
	if err != nil {
		emit(core.ActionEvent(runID, toolID, name, nil))
		return emitObservation(emit, runID, toolID, "Error: invalid arguments: "+err.Error())
	}
	emit(core.ActionEvent(runID, toolID, name, input))

	if a.tools == nil {
		return emitObservation(emit, runID, toolID, fmt.Sprintf("Error: unknown tool %q", name))
	}

	// WithTimeoutResult forces dispatchExternalTool to return at the budget
	// even if ExecuteAction ignores the context it's handed and never
	// returns on its own; the goroutine it leaves running is abandoned. The
	// circuit breaker wrapping it short-circuits further calls to a tool
	// that keeps failing instead of paying the full timeout every turn.
	var raw interface{}
	cb := a.breakerFor(name)
	err = cb.Call(ctx, func() error {
		var callErr error
		raw, callErr = resilience.WithTimeoutResult(ctx, resilience.TimeoutConfig{Duration: a.toolTimeout},
			func() (interface{}, error) {
				toolCtx, cancel := context.WithTimeout(ctx, a.toolTimeout)
				defer cancel()
				return a.tools.ExecuteAction(toolCtx, name, input)
			})
		return callErr
	})
	if err != nil {
		re, ok := err.(*errors.RuntimeError)
		switch {
		case ok && re.Code == errors.CodeTimeout:
			return emitObservation(emit, runID, toolID, "Error: tool call timed out after "+a.toolTimeout.String())
		case ok && re.Context["breaker"] == name:
			return emitObservation(emit, runID, toolID, "Error: tool "+name+" is temporarily unavailable after repeated failures")
		default:
			return emitObservation(emit, runID, toolID, "Error: "+err.Error())
		}
	}

	return emitObservation(emit, runID, toolID, stringifyToolResult(raw))
}

func parseToolArgs(argsJSON string) (map[string]any, error) {
	if strings.TrimSpace(argsJSON) == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func stringifyToolResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
