// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

type fakeClient struct {
	mu     sync.Mutex
	tools  []mcpgo.Tool
	closed bool
	calls  []string
}

func (f *fakeClient) ListTools(ctx context.Context) ([]mcpgo.Tool, error) {
	return f.tools, nil
}

func (f *fakeClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcpgo.CallToolResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	return &mcpgo.CallToolResult{
		Content: []mcpgo.Content{mcpgo.TextContent{Text: "ok:" + name}},
	}, nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func newTestSource(dial dialFunc) *Source {
	s := New(Config{Name: "weather", Type: TransportStdio, Command: "weather-server"}, nil)
	s.dial = dial
	return s
}

func TestReconnectDelayFollowsExactBackoffFormula(t *testing.T) {
	cases := map[int]time.Duration{
		1: 5 * time.Second,
		2: 10 * time.Second,
		3: 20 * time.Second,
		4: 40 * time.Second,
		5: 60 * time.Second, // would be 80s uncapped
		6: 60 * time.Second,
	}
	for attempt, want := range cases {
		if got := reconnectDelay(attempt); got != want {
			t.Fatalf("attempt %d: got %v want %v", attempt, got, want)
		}
	}
}

func TestInitializeSuccessPublishesTools(t *testing.T) {
	fc := &fakeClient{tools: []mcpgo.Tool{{Name: "forecast", Description: "get forecast"}}}
	s := newTestSource(func(ctx context.Context, cfg Config) (rawClient, error) { return fc, nil })

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	tools := s.GetTools()
	if len(tools) != 1 || tools[0].Name != "mcp-weather.forecast" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
}

func TestInitializeFailurePropagatesErrorAndSchedulesReconnect(t *testing.T) {
	attempts := 0
	var mu sync.Mutex
	s := newTestSource(func(ctx context.Context, cfg Config) (rawClient, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			return nil, errors.New("connection refused")
		}
		return &fakeClient{}, nil
	})

	if err := s.Initialize(context.Background()); err == nil {
		t.Fatalf("expected initialize to propagate the handshake error")
	}
	if len(s.GetTools()) != 0 {
		t.Fatalf("expected no tools while disconnected")
	}

	s.mu.Lock()
	if s.state != stateReconnecting || s.reconnectTimer == nil {
		s.mu.Unlock()
		t.Fatalf("expected a reconnect to have been scheduled, state=%v", s.state)
	}
	s.reconnectTimer.Stop()
	s.mu.Unlock()

	// Drive the scheduled attempt directly instead of waiting out the real
	// backoff delay.
	s.attemptReconnect()

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != stateConnected {
		t.Fatalf("expected reconnect to succeed, got state %v", state)
	}
}

func TestExecuteFailsNotConnectedWhileDisconnected(t *testing.T) {
	s := newTestSource(func(ctx context.Context, cfg Config) (rawClient, error) {
		return nil, errors.New("down")
	})
	_ = s.Initialize(context.Background())

	if _, err := s.Execute(context.Background(), "mcp-weather.forecast", nil); err == nil {
		t.Fatalf("expected execute to fail while disconnected")
	}
}

func TestExecuteStripsSourcePrefixAndJoinsTextContent(t *testing.T) {
	fc := &fakeClient{tools: []mcpgo.Tool{{Name: "forecast"}}}
	s := newTestSource(func(ctx context.Context, cfg Config) (rawClient, error) { return fc, nil })
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	result, err := s.Execute(context.Background(), "mcp-weather.forecast", map[string]any{"city": "denver"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "ok:forecast" {
		t.Fatalf("unexpected result: %v", result)
	}
	if len(fc.calls) != 1 || fc.calls[0] != "forecast" {
		t.Fatalf("expected server tool name stripped of prefix, got %+v", fc.calls)
	}
}

func TestDestroyStopsReconnectAndClearsTools(t *testing.T) {
	fc := &fakeClient{tools: []mcpgo.Tool{{Name: "forecast"}}}
	s := newTestSource(func(ctx context.Context, cfg Config) (rawClient, error) { return fc, nil })
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := s.Destroy(context.Background()); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if !fc.closed {
		t.Fatalf("expected underlying client closed")
	}
	if len(s.GetTools()) != 0 {
		t.Fatalf("expected no tools after destroy")
	}
	if _, err := s.Execute(context.Background(), "mcp-weather.forecast", nil); err == nil {
		t.Fatalf("expected execute to fail after destroy")
	}
}

func TestConfigValidateRejectsMalformed(t *testing.T) {
	cases := []Config{
		{Type: TransportStdio, Command: "x"},                 // missing name
		{Name: "a", Type: TransportStdio},                    // missing command
		{Name: "a", Type: TransportSSE},                      // missing url
		{Name: "a", Type: "carrier-pigeon", Command: "x"},    // unsupported transport
	}
	for _, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", c)
		}
	}
}
