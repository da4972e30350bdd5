package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stategraph-go/stategraph/graph/model"
)

func TestNewChatModel(t *testing.T) {
	t.Run("uses default model when name is empty", func(t *testing.T) {
		m := NewChatModel("test-key", "")
		if m.modelName != defaultModel {
			t.Errorf("modelName = %q, want %q", m.modelName, defaultModel)
		}
	})

	t.Run("keeps explicit model name", func(t *testing.T) {
		m := NewChatModel("test-key", "gpt-4o-mini")
		if m.modelName != "gpt-4o-mini" {
			t.Errorf("modelName = %q, want %q", m.modelName, "gpt-4o-mini")
		}
	})
}

func TestChat_Preconditions(t *testing.T) {
	m := NewChatModel("test-key", "")

	t.Run("rejects empty conversation", func(t *testing.T) {
		_, err := m.Chat(context.Background(), nil, nil)
		if err == nil {
			t.Fatal("Chat() with no messages should fail")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Chat() error = %v, want context.Canceled", err)
		}
	})
}
