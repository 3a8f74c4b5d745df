package core

import (
	"context"
	"time"
)

// EventKind identifies the variant of an execution event.
type EventKind string

const (
	// EventContent is an incremental text delta from the model.
	EventContent EventKind = "content"

	// EventThought carries the rationale attached to a planning call.
	EventThought EventKind = "thought"

	// EventPlan carries an ordered list of steps produced by plan_task.
	EventPlan EventKind = "plan"

	// EventAction marks the start of a tool invocation.
	EventAction EventKind = "action"

	// EventObservation carries a tool's result or error back into the loop.
	EventObservation EventKind = "observation"

	// EventTaskCreated marks a DAG task entering the graph.
	EventTaskCreated EventKind = "task_created"

	// EventTaskCompleted marks a DAG task settling successfully.
	EventTaskCompleted EventKind = "task_completed"

	// EventTaskFailed marks a DAG task settling with an error.
	EventTaskFailed EventKind = "task_failed"

	// EventAnswer is the final text of an agent run.
	EventAnswer EventKind = "answer"

	// EventError terminates a run early.
	EventError EventKind = "error"
)

// Event is the tagged union of everything an agent run or DAG execution
// can emit. Only the fields relevant to Kind are populated; the rest are
// left zero. This keeps the type a single flat, JSON-serializable struct
// rather than a Go interface, since events cross process boundaries (SSE,
// websockets) where a client deserializes on Kind alone.
type Event struct {
	Kind      EventKind `json:"kind"`
	RunID     string    `json:"run_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Content, Thought, Answer text.
	Text string `json:"text,omitempty"`

	// Plan.
	Steps []string `json:"steps,omitempty"`

	// Action.
	ToolName string         `json:"tool_name,omitempty"`
	ToolID   string         `json:"tool_id,omitempty"`
	Input    map[string]any `json:"input,omitempty"`

	// Observation.
	Result  string `json:"result,omitempty"`
	IsError bool   `json:"is_error,omitempty"`

	// task_created / task_completed / task_failed.
	TaskID       string `json:"task_id,omitempty"`
	TaskResult   any    `json:"task_result,omitempty"`
	TaskError    string `json:"task_error,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`

	// EventError only. Not marshaled directly; callers project Err.Error()
	// into a message before sending the event over the wire.
	Err error `json:"-"`
}

// ContentEvent builds a content delta event.
func ContentEvent(runID string, text string) Event {
	return Event{Kind: EventContent, RunID: runID, Timestamp: time.Now().UTC(), Text: text}
}

// ThoughtEvent builds a planning-rationale event.
func ThoughtEvent(runID string, text string) Event {
	return Event{Kind: EventThought, RunID: runID, Timestamp: time.Now().UTC(), Text: text}
}

// PlanEvent builds a plan-steps event.
func PlanEvent(runID string, steps []string) Event {
	return Event{Kind: EventPlan, RunID: runID, Timestamp: time.Now().UTC(), Steps: steps}
}

// ActionEvent builds a tool-invocation-started event.
func ActionEvent(runID, toolID, toolName string, input map[string]any) Event {
	return Event{Kind: EventAction, RunID: runID, Timestamp: time.Now().UTC(), ToolID: toolID, ToolName: toolName, Input: input}
}

// ObservationEvent builds a tool-result event.
func ObservationEvent(runID, toolID string, result string, isErr bool) Event {
	return Event{Kind: EventObservation, RunID: runID, Timestamp: time.Now().UTC(), ToolID: toolID, Result: result, IsError: isErr}
}

// AnswerEvent builds the terminal answer event of a run.
func AnswerEvent(runID string, text string) Event {
	return Event{Kind: EventAnswer, RunID: runID, Timestamp: time.Now().UTC(), Text: text}
}

// ErrorEvent builds a terminal error event.
func ErrorEvent(runID string, err error) Event {
	return Event{Kind: EventError, RunID: runID, Timestamp: time.Now().UTC(), Err: err}
}

// TaskCreatedEvent builds a DAG task-created event.
func TaskCreatedEvent(taskID string, deps []string) Event {
	return Event{Kind: EventTaskCreated, Timestamp: time.Now().UTC(), TaskID: taskID, Dependencies: deps}
}

// TaskCompletedEvent builds a DAG task-completed event.
func TaskCompletedEvent(taskID string, result any) Event {
	return Event{Kind: EventTaskCompleted, Timestamp: time.Now().UTC(), TaskID: taskID, TaskResult: result}
}

// TaskFailedEvent builds a DAG task-failed event.
func TaskFailedEvent(taskID string, err error) Event {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Event{Kind: EventTaskFailed, Timestamp: time.Now().UTC(), TaskID: taskID, TaskError: msg}
}

// EventEmitter is an optional side-channel observer for events, distinct
// from the primary channel-based stream a run returns. Telemetry hooks
// (span events, counters) implement this without being on the hot path
// of consuming the run's own event channel.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter discards every event.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}
