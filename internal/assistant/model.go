// Package assistant runs the shopping chat: a language model chooses
// tools from a fixed catalog and the Toolbox executes them against the
// catalog and cart services.
package assistant

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// Message is one transcript entry in provider-neutral form.
// Tool messages carry the originating call id and tool name.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

// Model is a chat-completion backend with function calling.
type Model interface {
	Name() string
	Complete(ctx context.Context, system string, msgs []Message, tools []ToolSpec) (Reply, error)
}
