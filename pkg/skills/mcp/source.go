// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/errors"
	kmcp "github.com/orbitune/agentrt/pkg/mcp"
)

// connState is the remote source's connection lifecycle.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateReconnecting
	stateClosed
)

const (
	baseReconnectDelay = 5 * time.Second
	maxReconnectDelay  = 60 * time.Second
)

// reconnectDelay implements the spec's exact backoff: min(5000*2^(n-1), 60000)ms, n starting at 1.
func reconnectDelay(attempt int) time.Duration {
	d := baseReconnectDelay * time.Duration(1<<uint(attempt-1))
	if d > maxReconnectDelay || d <= 0 {
		return maxReconnectDelay
	}
	return d
}

// rawClient is the subset of *pkg/mcp.Client this source depends on,
// narrowed so tests can substitute a fake transport.
type rawClient interface {
	ListTools(ctx context.Context) ([]mcpgo.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcpgo.CallToolResult, error)
	Close() error
}

// dialFunc opens a transport-specific MCP connection and performs the
// initialize handshake.
type dialFunc func(ctx context.Context, cfg Config) (rawClient, error)

// Source is the remote MCP skill source. It publishes tools named
// "mcp-<name>.<server-tool-name>" and executes them by forwarding to the
// underlying server, stripping the source prefix first.
type Source struct {
	cfg    Config
	logger *slog.Logger
	dial   dialFunc

	mu             sync.Mutex
	state          connState
	client         rawClient
	tools          []mcpgo.Tool
	reconnectTimer *time.Timer
	reconnectN     int
}

// New creates a remote skill source for cfg, dialing over stdio or SSE
// depending on cfg.Type.
func New(cfg Config, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{cfg: cfg, logger: logger, dial: defaultDial}
}

func (s *Source) Name() string { return s.cfg.SourceName() }

// Initialize validates configuration and performs the first connection
// attempt. A handshake failure is returned to the caller, but a reconnect
// is scheduled regardless so the source can recover once the server
// becomes reachable.
func (s *Source) Initialize(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return errors.New(errors.CodeConfig, "invalid mcp source configuration", err)
	}

	s.mu.Lock()
	s.state = stateConnecting
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		s.logger.Warn("mcp source initial connect failed, scheduling reconnect", "source", s.Name(), "error", err)
		s.scheduleReconnect()
		return errors.New(errors.CodeNotConnected, fmt.Sprintf("mcp source %q failed to connect", s.Name()), err)
	}
	return nil
}

func (s *Source) connect(ctx context.Context) error {
	client, err := s.dial(ctx, s.cfg)
	if err != nil {
		return err
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		_ = client.Close()
		return err
	}

	s.mu.Lock()
	s.client = client
	s.tools = tools
	s.state = stateConnected
	s.reconnectN = 0
	s.mu.Unlock()
	return nil
}

// scheduleReconnect arms a single-shot timer using the spec's exponential
// backoff. The timer is stopped by Destroy and never blocks process exit
// since it is only ever waited on from its own goroutine, not joined.
func (s *Source) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return
	}
	s.state = stateReconnecting
	s.reconnectN++
	delay := reconnectDelay(s.reconnectN)

	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
	}
	s.reconnectTimer = time.AfterFunc(delay, s.attemptReconnect)
}

func (s *Source) attemptReconnect() {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.logger.Warn("mcp source reconnect attempt failed", "source", s.Name(), "error", err)
		s.scheduleReconnect()
		return
	}
	s.logger.Info("mcp source reconnected", "source", s.Name())
}

// GetTools returns the cached tool descriptors, empty while disconnected.
func (s *Source) GetTools() []core.ToolDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateConnected {
		return nil
	}

	out := make([]core.ToolDescriptor, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, core.ToolDescriptor{
			Name:        s.qualifiedName(t.Name),
			Description: t.Description,
			Parameters:  toolParameters(t),
		})
	}
	return out
}

func (s *Source) qualifiedName(serverToolName string) string {
	return s.Name() + "." + serverToolName
}

func toolParameters(t mcpgo.Tool) any {
	if t.RawInputSchema != nil {
		return t.RawInputSchema
	}
	return t.InputSchema
}

// Execute strips the "mcp-<name>." prefix and forwards to the server.
// Fails with CodeNotConnected while disconnected, with no queueing.
func (s *Source) Execute(ctx context.Context, toolName string, params map[string]any) (any, error) {
	s.mu.Lock()
	client := s.client
	state := s.state
	s.mu.Unlock()

	if state != stateConnected || client == nil {
		return nil, errors.New(errors.CodeNotConnected, fmt.Sprintf("mcp source %q is not connected", s.Name()), nil)
	}

	prefix := s.Name() + "."
	serverTool := strings.TrimPrefix(toolName, prefix)

	result, err := client.CallTool(ctx, serverTool, params)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, fmt.Sprintf("mcp tool %q failed", toolName), err)
	}
	return extractResult(result)
}

// extractResult reduces an MCP call result to the value the agent loop
// sees: a single text block's text, multiple blocks newline-joined, or
// the raw response when there is no text content.
func extractResult(result *mcpgo.CallToolResult) (any, error) {
	if result == nil {
		return nil, nil
	}
	var parts []string
	for _, item := range result.Content {
		switch c := item.(type) {
		case mcpgo.TextContent:
			parts = append(parts, c.Text)
		case *mcpgo.TextContent:
			parts = append(parts, c.Text)
		}
	}
	switch len(parts) {
	case 0:
		return result, nil
	case 1:
		return parts[0], nil
	default:
		return strings.Join(parts, "\n"), nil
	}
}

// Destroy cancels any pending reconnect, closes the client ignoring
// errors, and clears the tool cache.
func (s *Source) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = stateClosed
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.client != nil {
		_ = s.client.Close()
		s.client = nil
	}
	s.tools = nil
	return nil
}

func defaultDial(ctx context.Context, cfg Config) (rawClient, error) {
	switch cfg.Type {
	case TransportStdio:
		return kmcp.NewClientWithStdioProtocol(cfg.Command, cfg.Args, mcpgo.LATEST_PROTOCOL_VERSION)
	case TransportSSE:
		return newSSEClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported mcp transport %q", cfg.Type)
	}
}
