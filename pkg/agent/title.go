// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"strings"

	"github.com/orbitune/agentrt/pkg/llm"
)

// fallbackTitle is returned whenever title generation fails for any reason.
const fallbackTitle = "新对话"

const titlePrompt = "Give this conversation a title of 5 to 10 characters. " +
	"No punctuation, no explanation, just the title."

// quotePairs lists the open/close quote marks stripped from a generated
// title, covering the locales the underlying models tend to wrap titles in.
var quotePairs = [][2]string{
	{`"`, `"`},
	{"'", "'"},
	{"“", "”"},
	{"‘", "’"},
	{"「", "」"},
	{"『", "』"},
	{"«", "»"},
}

// GenerateTitle requests a short one-shot completion naming utterance and
// returns a trimmed, unquoted title, or fallbackTitle on any failure.
func GenerateTitle(ctx context.Context, provider llm.Provider, model string, utterance string) string {
	if provider == nil {
		return fallbackTitle
	}

	resp, err := provider.Chat(ctx, llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: titlePrompt},
			{Role: llm.RoleUser, Content: utterance},
		},
	})
	if err != nil || resp == nil {
		return fallbackTitle
	}

	title := strings.TrimSpace(resp.Content)
	title = stripSurroundingQuotes(title)
	if title == "" {
		return fallbackTitle
	}
	return title
}

func stripSurroundingQuotes(s string) string {
	for {
		trimmed := false
		for _, pair := range quotePairs {
			if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) && len(s) >= len(pair[0])+len(pair[1]) {
				s = strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
				trimmed = true
			}
		}
		if !trimmed {
			break
		}
	}
	return s
}
