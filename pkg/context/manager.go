// Package context implements the sliding context window: fitting a
// system message, conversation history, and the current turn into a
// token budget by trimming old history and, when trimming loses
// information, replacing it with an LLM-generated summary.
package context

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/orbitune/agentrt/pkg/llm"
)

const (
	// historyKeepFraction is the share of the history budget reserved for
	// kept messages once trimming is required; the rest goes to the
	// summary message that stands in for everything older.
	historyKeepFraction = 0.8

	// minKeptMessages is the floor on how many of the newest history
	// messages survive trimming, even if they alone exceed the keep
	// budget.
	minKeptMessages = 2

	summaryTurnCharLimit  = 500
	summaryTotalCharLimit = 3000
	summaryRequestPrompt  = "Summarize the prior conversation in 200 characters or fewer."

	fallbackRecentCount    = 5
	fallbackPrefixCharsCap = 100
)

// Manager fits {system, history, current-turn} into a token budget.
type Manager struct {
	MaxTokens      int
	ReservedTokens int
	Logger         *slog.Logger
}

// New creates a Manager with the given token budget.
func New(maxTokens, reservedTokens int) *Manager {
	return &Manager{
		MaxTokens:      maxTokens,
		ReservedTokens: reservedTokens,
		Logger:         slog.Default(),
	}
}

// EstimateTokens approximates token count as ceil(len(content)/3) plus the
// length of any tool-calls JSON. This heuristic is intentionally
// conservative for mixed ASCII/CJK text and must stay exactly this shape
// so budgets computed elsewhere stay reproducible.
func EstimateTokens(msg llm.Message) int {
	tokens := ceilDiv(len(msg.Content), 3)
	if len(msg.ToolCalls) > 0 {
		if b, err := json.Marshal(msg.ToolCalls); err == nil {
			tokens += len(b)
		}
	}
	return tokens
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func sumTokens(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m)
	}
	return total
}

// Summarizer produces a short recap of the conversation text that was
// trimmed. The agent's LLM provider satisfies this via a thin adapter, or
// callers can pass a stub in tests.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummarizerFunc adapts a plain function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, text string) (string, error)

// Summarize implements Summarizer.
func (f SummarizerFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Fit returns an ordered message list — [system, (summary), ...kept
// history, ...current] — that respects the configured token budget. The
// system message and every current-turn message are never trimmed.
func (m *Manager) Fit(ctx context.Context, system llm.Message, history []llm.Message, current []llm.Message, summarizer Summarizer) ([]llm.Message, error) {
	budget := m.MaxTokens - m.ReservedTokens

	fixed := EstimateTokens(system) + sumTokens(current)
	if fixed >= budget {
		m.logger().Warn("context budget too small for fixed messages alone",
			"budget", budget, "fixed_tokens", fixed)
		return append([]llm.Message{system}, current...), nil
	}

	historyBudget := budget - fixed
	if sumTokens(history) <= historyBudget {
		out := make([]llm.Message, 0, len(history)+len(current)+1)
		out = append(out, system)
		out = append(out, history...)
		out = append(out, current...)
		return out, nil
	}

	keepBudget := int(float64(historyBudget) * historyKeepFraction)

	kept := make([]llm.Message, 0, len(history))
	keptTokens := 0
	splitIdx := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		next := EstimateTokens(history[i])
		if keptTokens+next > keepBudget && len(kept) > 0 {
			break
		}
		kept = append([]llm.Message{history[i]}, kept...)
		keptTokens += next
		splitIdx = i
	}
	if len(kept) < minKeptMessages && len(history) >= minKeptMessages {
		splitIdx = len(history) - minKeptMessages
		kept = history[splitIdx:]
	}
	trimmed := history[:splitIdx]

	summaryText, err := m.summarize(ctx, trimmed, summarizer)
	if err != nil {
		m.logger().Warn("context summarization failed, using fallback", "error", err)
		summaryText = fallbackSummary(trimmed)
	}

	summaryMsg := llm.Message{Role: llm.RoleSystem, Content: summaryText}

	out := make([]llm.Message, 0, len(kept)+len(current)+2)
	out = append(out, system, summaryMsg)
	out = append(out, kept...)
	out = append(out, current...)
	return out, nil
}

func (m *Manager) summarize(ctx context.Context, trimmed []llm.Message, summarizer Summarizer) (string, error) {
	if summarizer == nil {
		return fallbackSummary(trimmed), nil
	}

	var b strings.Builder
	for _, msg := range trimmed {
		if msg.Role != llm.RoleUser && msg.Role != llm.RoleAssistant {
			continue
		}
		text := msg.Content
		if len(text) > summaryTurnCharLimit {
			text = text[:summaryTurnCharLimit]
		}
		if b.Len()+len(text) > summaryTotalCharLimit {
			break
		}
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, text)
	}

	return summarizer.Summarize(ctx, b.String())
}

// fallbackSummary lists up to the five most recent user-message prefixes
// when LLM summarization is unavailable or fails.
func fallbackSummary(trimmed []llm.Message) string {
	var prefixes []string
	for i := len(trimmed) - 1; i >= 0 && len(prefixes) < fallbackRecentCount; i-- {
		if trimmed[i].Role != llm.RoleUser {
			continue
		}
		text := trimmed[i].Content
		if len(text) > fallbackPrefixCharsCap {
			text = text[:fallbackPrefixCharsCap]
		}
		prefixes = append(prefixes, text)
	}
	if len(prefixes) == 0 {
		return fmt.Sprintf("Summary of %d prior messages.", len(trimmed))
	}
	return fmt.Sprintf("Summary of %d prior messages, most recent first: %s", len(trimmed), strings.Join(prefixes, " | "))
}

// ProviderSummarizer adapts an llm.Provider into a Summarizer by issuing a
// single non-streaming chat call asking for a short recap.
type ProviderSummarizer struct {
	Provider llm.Provider
	Model    string
}

// Summarize implements Summarizer.
func (p ProviderSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	resp, err := p.Provider.Chat(ctx, llm.ChatRequest{
		Model: p.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: summaryRequestPrompt},
			{Role: llm.RoleUser, Content: text},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
