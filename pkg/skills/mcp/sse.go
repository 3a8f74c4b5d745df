// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	kmcp "github.com/orbitune/agentrt/pkg/mcp"
)

// newSSEClient connects to a remote MCP server over SSE and performs the
// initialize handshake, mirroring pkg/mcp.NewClientWithStdioProtocol's
// connect-then-initialize shape for the event-stream transport.
func newSSEClient(ctx context.Context, cfg Config) (rawClient, error) {
	sseClient, err := client.NewSSEMCPClient(cfg.URL)
	if err != nil {
		return nil, err
	}

	if err := sseClient.Start(ctx); err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	initRequest := mcpgo.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcpgo.Implementation{
		Name:    "agentrt-client",
		Version: "0.1.0",
	}

	if _, err := sseClient.Initialize(initCtx, initRequest); err != nil {
		_ = sseClient.Close()
		return nil, err
	}

	return kmcp.NewClient(sseClient), nil
}
