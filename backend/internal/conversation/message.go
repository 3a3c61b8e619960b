package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role identifies the author of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallTypeFunction is the only tool call type the application issues
const ToolCallTypeFunction = "function"

var ErrMissingToolCallID = errors.New("tool message requires a tool_call_id")

// FunctionCall names the function and carries its JSON-encoded arguments
type FunctionCall struct {
	Name      string `json:"name" bson:"name"`
	Arguments string `json:"arguments" bson:"arguments"`
}

// ToolCall is a structured request from the model to invoke a tool
type ToolCall struct {
	ID       string       `json:"id" bson:"id"`
	Type     string       `json:"type" bson:"type"`
	Function FunctionCall `json:"function" bson:"function"`
}

// Message is one entry of a conversation log. Only plain data lives here,
// so every message that can be constructed can also be persisted.
type Message struct {
	Role       Role       `json:"role" bson:"role"`
	Content    Content    `json:"content,omitempty" bson:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" bson:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" bson:"tool_call_id,omitempty"`
}

// NewSystemMessage builds a system instruction message
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: Text(text)}
}

// NewUserMessage builds a user message
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: Text(text)}
}

// NewAssistantMessage builds a plain assistant reply
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: Text(text)}
}

// NewAssistantToolCalls builds the assistant message that issues tool calls.
// Content may be empty.
func NewAssistantToolCalls(content Content, calls []ToolCall) Message {
	copied := make([]ToolCall, len(calls))
	copy(copied, calls)
	for i := range copied {
		if copied[i].Type == "" {
			copied[i].Type = ToolCallTypeFunction
		}
	}
	if len(content) == 0 {
		content = nil
	}
	return Message{Role: RoleAssistant, Content: content.clone(), ToolCalls: copied}
}

// NewToolMessage wraps a tool result as a single document segment answering callID
func NewToolMessage(callID string, payload any) (Message, error) {
	if callID == "" {
		return Message{}, ErrMissingToolCallID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode tool result for %s: %w", callID, err)
	}
	return Message{
		Role:       RoleTool,
		Content:    Content{DocumentSegment(string(data))},
		ToolCallID: callID,
	}, nil
}

// Text returns the display text of the message
func (m Message) Text() string {
	return ExtractText(m.Content)
}

// HasToolCalls reports whether the message issues tool calls
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Clone returns a deep copy of the message
func (m Message) Clone() Message {
	out := m
	out.Content = m.Content.clone()
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	return out
}

// CloneHistory deep-copies a message log
func CloneHistory(history []Message) []Message {
	if history == nil {
		return nil
	}
	out := make([]Message, len(history))
	for i, m := range history {
		out[i] = m.Clone()
	}
	return out
}

// CountUserMessages counts messages authored by the user
func CountUserMessages(history []Message) int {
	n := 0
	for _, m := range history {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}
