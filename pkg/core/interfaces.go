package core

import (
	"context"

	"github.com/orbitune/agentrt/pkg/llm"
)

// ToolDescriptor is what the agent loop advertises to the model: a name,
// a human description, and a JSON-Schema-shaped parameter object.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  any
}

// ToLLMTool converts a ToolDescriptor into the shape a Provider expects.
func (d ToolDescriptor) ToLLMTool() llm.Tool {
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		},
	}
}

// ActionHandler executes one bound action of a Skill.
type ActionHandler func(ctx context.Context, params map[string]any) (any, error)

// SkillAction is one operation a Skill exposes, with its schema and the
// handler bound to it.
type SkillAction struct {
	Name        string
	Description string
	Parameters  any
	Required    []string
	Handler     ActionHandler
}

// Skill groups related actions under shared manifest metadata.
type Skill struct {
	Name        string
	Version     string
	Description string
	Author      string
	Actions     map[string]SkillAction
}

// SkillSource is the contract every tool provider — local filesystem or
// remote MCP server — implements. The Skill Registry aggregates sources
// and routes invocations to whichever currently advertises a tool name.
type SkillSource interface {
	// Name is globally unique among installed sources.
	Name() string

	// Initialize establishes whatever state the source needs (parsing
	// manifests, opening a transport) before GetTools/Execute are called.
	Initialize(ctx context.Context) error

	// GetTools returns the tool descriptors currently advertised. A
	// disconnected remote source returns an empty slice rather than error.
	GetTools() []ToolDescriptor

	// Execute invokes a bound tool by the full name GetTools advertises;
	// a source that prefixes its tool names strips the prefix itself.
	Execute(ctx context.Context, toolName string, params map[string]any) (any, error)

	// Destroy releases the source's resources. Called before a same-named
	// replacement is installed, and on explicit unregistration.
	Destroy(ctx context.Context) error
}

// SessionHandle identifies the caller of an agent run by session and user
// id. It holds no memory-access or logger binding.
type SessionHandle struct {
	SessionID string
	UserID    string
}
