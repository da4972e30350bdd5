package graph

import (
	"context"
	"fmt"

	"github.com/stategraph-go/stategraph/graph/model"
)

// State keys read and written by LLMNode.
const (
	// KeyInput is read when KeyMessages is absent: a single user prompt.
	KeyInput = "input"

	// KeyMessages is the preferred input: a []model.Message conversation.
	KeyMessages = "messages"

	// KeyLLMResponse receives the model's text reply.
	KeyLLMResponse = "llm_response"

	// KeyLLMMetadata receives a map with "model", "tokens_in", and
	// "tokens_out" describing the call.
	KeyLLMMetadata = "llm_metadata"
)

// LLMNode builds a node that calls a chat model with the conversation held
// in state.
//
// Input is taken from state[KeyMessages] ([]model.Message) when present,
// otherwise from state[KeyInput] (a string sent as a single user turn). A
// non-empty systemPrompt is prepended as a system message. The node's update
// writes the reply under KeyLLMResponse and call details under
// KeyLLMMetadata.
//
// Example:
//
//	m := anthropic.NewChatModel(apiKey, "")
//	g.AddNode("draft", graph.LLMNode(m, "You write release notes."))
func LLMNode(m model.ChatModel, systemPrompt string) Node {
	return NodeFunc(func(ctx context.Context, state State) NodeResult {
		messages, err := conversationFromState(state, systemPrompt)
		if err != nil {
			return Fail(err)
		}

		out, err := m.Chat(ctx, messages, nil)
		if err != nil {
			return Fail(err)
		}

		return Update(State{
			KeyLLMResponse: out.Text,
			KeyLLMMetadata: map[string]any{
				"model":      out.Model,
				"tokens_in":  out.TokensIn,
				"tokens_out": out.TokensOut,
			},
		})
	})
}

// conversationFromState assembles the message list an LLMNode sends.
func conversationFromState(state State, systemPrompt string) ([]model.Message, error) {
	var messages []model.Message
	if systemPrompt != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: systemPrompt})
	}

	if raw, ok := state[KeyMessages]; ok {
		switch v := raw.(type) {
		case []model.Message:
			return append(messages, v...), nil
		case []any:
			for _, item := range v {
				msg, ok := item.(model.Message)
				if !ok {
					return nil, &ValidationError{Field: KeyMessages, Value: item,
						Cause: fmt.Errorf("expected model.Message, got %T", item)}
				}
				messages = append(messages, msg)
			}
			return messages, nil
		default:
			return nil, &ValidationError{Field: KeyMessages, Value: raw,
				Cause: fmt.Errorf("expected []model.Message, got %T", raw)}
		}
	}

	input, ok := state[KeyInput].(string)
	if !ok || input == "" {
		return nil, &ValidationError{Field: KeyInput, Value: state[KeyInput],
			Cause: fmt.Errorf("state has neither %q nor a non-empty %q", KeyMessages, KeyInput)}
	}
	return append(messages, model.Message{Role: model.RoleUser, Content: input}), nil
}
