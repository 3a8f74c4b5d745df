// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the LLM-driven agent loop and configuration options.
package agent

import (
	"github.com/orbitune/agentrt/pkg/errors"
)

// WrapLLMError wraps an LLM error with appropriate context.
func WrapLLMError(err error, model string) *errors.RuntimeError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeLLMError, "LLM call failed", err).
		WithContext("model", model).
		WithAttribute("llm.model", model).
		WithRecoverable(true)
}

// WrapToolError wraps a tool execution error with appropriate context.
func WrapToolError(err error, toolName, toolCallID string) *errors.RuntimeError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeToolFailure, "tool execution failed", err).
		WithContext("tool_name", toolName).
		WithContext("tool_call_id", toolCallID).
		WithAttribute("tool.name", toolName).
		WithRecoverable(true)
}

// WrapMemoryError wraps a memory system error with appropriate context.
func WrapMemoryError(err error, operation string) *errors.RuntimeError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeMemoryError, "memory operation failed", err).
		WithContext("operation", operation).
		WithAttribute("memory.operation", operation).
		WithRecoverable(true)
}

// WrapTimeoutError wraps a timeout error with appropriate context.
func WrapTimeoutError(err error, operation string, maxIterations int) *errors.RuntimeError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeTimeout, "operation exceeded max iterations", err).
		WithContext("operation", operation).
		WithContext("max_iterations", maxIterations).
		WithRecoverable(false)
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(msg string) *errors.RuntimeError {
	return errors.New(errors.CodeInvalidInput, msg, nil).
		WithRecoverable(false)
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, name string) *errors.RuntimeError {
	return errors.New(errors.CodeNotFound, resource+" not found", nil).
		WithContext("resource", resource).
		WithContext("name", name).
		WithRecoverable(false)
}
