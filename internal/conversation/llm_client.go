package conversation

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// ToolProperty describes one argument of a tool.
type ToolProperty struct {
	Type        string
	Description string
}

// ToolDefinition is a provider-neutral function declaration.
type ToolDefinition struct {
	Name        string
	Description string
	Properties  map[string]ToolProperty
	Required    []string
}

// ToolCall is a function invocation requested by the model. Args holds the
// raw decoded JSON values; callers validate types.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	Tools       []ToolDefinition
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	ToolCalls  []ToolCall
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
