// Package model defines the provider-neutral chat interface used by LLM
// nodes, plus adapters for Anthropic, OpenAI, and Google in subpackages.
package model

import "context"

// ChatModel abstracts a chat-completion provider.
//
// Implementations wrap a provider SDK and normalize its request/response
// types to Message and ChatOut, so workflow nodes stay provider-agnostic.
// Tool support is optional: adapters that cannot express tools ignore the
// tools argument.
//
// Implementations must be safe for concurrent use; a single ChatModel is
// commonly shared by every invocation of a compiled graph.
type ChatModel interface {
	// Chat sends the conversation to the provider and returns its reply.
	// The context governs the underlying HTTP call.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn of a conversation.
type Message struct {
	// Role is one of the Role* constants.
	Role string

	// Content is the text of the turn.
	Content string
}

// Standard role constants for chat conversations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the model may call.
type ToolSpec struct {
	// Name must be a valid function name (alphanumeric plus underscores).
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Schema is a JSON Schema object describing the tool's input.
	Schema map[string]interface{}
}

// ChatOut is a provider's normalized reply.
type ChatOut struct {
	// Text is the assistant's text reply. Empty when the model chose to
	// call tools instead.
	Text string

	// ToolCalls lists the tool invocations the model requested, if any.
	ToolCalls []ToolCall

	// Model identifies the provider model that produced the reply.
	Model string

	// TokensIn and TokensOut report usage when the provider supplies it.
	TokensIn  int
	TokensOut int
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	// Name matches a ToolSpec.Name from the request.
	Name string

	// Input is the model-supplied arguments for the tool.
	Input map[string]interface{}
}
