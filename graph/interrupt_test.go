package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stategraph-go/stategraph/graph/store"
)

// approvalGraph builds draft -> approve -> publish, where approve suspends
// until a reviewer responds and rejects unless the payload equals "yes".
func approvalGraph(t *testing.T, opts ...Option) *CompiledGraph {
	t.Helper()

	g := NewStateGraph(nil)
	_ = g.AddNode("draft", NodeFunc(func(ctx context.Context, s State) NodeResult {
		return Update(State{"document": "draft v1"})
	}))
	_ = g.AddNode("approve", NodeFunc(func(ctx context.Context, s State) NodeResult {
		answer, ok := s[KeyResume]
		if !ok {
			return Suspend(map[string]any{"question": "publish draft v1?"})
		}
		if answer == "yes" {
			return Update(State{"approved": true})
		}
		return Goto(End)
	}))
	_ = g.AddNode("publish", NodeFunc(func(ctx context.Context, s State) NodeResult {
		return Update(State{"published": true})
	}))
	_ = g.AddEdge(Start, "draft")
	_ = g.AddEdge("draft", "approve")
	_ = g.AddEdge("approve", "publish")
	_ = g.AddEdge("publish", End)

	compiled, err := g.Compile(opts...)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return compiled
}

// TestInterrupt_Suspends verifies an interrupt returns state with metadata
// instead of an error.
func TestInterrupt_Suspends(t *testing.T) {
	st := store.NewMemStore[State]()
	compiled := approvalGraph(t, WithStore(st))

	state, err := compiled.Invoke(context.Background(), nil, Config{ThreadID: "review"})
	if err != nil {
		t.Fatalf("interrupt must not surface as an error: %v", err)
	}

	pending, ok := state[KeyInterrupt].([]Interrupt)
	if !ok || len(pending) != 1 {
		t.Fatalf("expected one pending interrupt, got %v", state[KeyInterrupt])
	}
	intr := pending[0]
	if intr.ID == "" {
		t.Error("expected engine-assigned interrupt id")
	}
	if intr.Node != "approve" {
		t.Errorf("expected interrupt at approve, got %q", intr.Node)
	}
	payload, _ := intr.Value.(map[string]any)
	if payload["question"] != "publish draft v1?" {
		t.Errorf("expected interrupt payload, got %v", intr.Value)
	}

	// The suspension is recorded as an interrupted checkpoint.
	latest, err := st.Get(context.Background(), "review", "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if latest.Metadata["status"] != "interrupted" {
		t.Errorf("expected interrupted checkpoint, got %v", latest.Metadata["status"])
	}
	if latest.Metadata["interrupt_id"] != intr.ID {
		t.Error("expected checkpoint to record the interrupt id")
	}
}

// TestResume_Completes verifies the suspend/resume round trip.
func TestResume_Completes(t *testing.T) {
	compiled := approvalGraph(t)
	cfg := Config{ThreadID: "review"}

	state, err := compiled.Invoke(context.Background(), nil, cfg)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	intr := state[KeyInterrupt].([]Interrupt)[0]

	final, err := compiled.Resume(context.Background(), Command{
		Resume:      "yes",
		InterruptID: intr.ID,
	}, cfg)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if final["approved"] != true {
		t.Error("expected approval after resume")
	}
	if final["published"] != true {
		t.Error("expected the run to continue past the interrupted node")
	}
	if final[KeyResume] != "yes" {
		t.Errorf("expected resume payload in state, got %v", final[KeyResume])
	}
	if _, still := final[KeyInterrupt]; still {
		t.Error("expected interrupt metadata to be cleared on resume")
	}
}

// TestResume_InterruptIDFromCheckpoint verifies an empty InterruptID falls
// back to the latest interrupted checkpoint.
func TestResume_InterruptIDFromCheckpoint(t *testing.T) {
	compiled := approvalGraph(t)
	cfg := Config{ThreadID: "review"}

	if _, err := compiled.Invoke(context.Background(), nil, cfg); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	final, err := compiled.Resume(context.Background(), Command{Resume: "yes"}, cfg)
	if err != nil {
		t.Fatalf("Resume without explicit id failed: %v", err)
	}
	if final["published"] != true {
		t.Error("expected completed run")
	}
}

// TestResume_Failures verifies invalid resume attempts.
func TestResume_Failures(t *testing.T) {
	t.Run("unknown interrupt id", func(t *testing.T) {
		compiled := approvalGraph(t)
		cfg := Config{ThreadID: "review"}
		if _, err := compiled.Invoke(context.Background(), nil, cfg); err != nil {
			t.Fatal(err)
		}

		_, err := compiled.Resume(context.Background(), Command{Resume: "yes", InterruptID: "bogus"}, cfg)
		var execErr *ExecutionError
		if !errors.As(err, &execErr) {
			t.Fatalf("expected *ExecutionError, got %v", err)
		}
	})

	t.Run("double resume", func(t *testing.T) {
		compiled := approvalGraph(t)
		cfg := Config{ThreadID: "review"}
		state, err := compiled.Invoke(context.Background(), nil, cfg)
		if err != nil {
			t.Fatal(err)
		}
		intr := state[KeyInterrupt].([]Interrupt)[0]
		cmd := Command{Resume: "yes", InterruptID: intr.ID}

		if _, err := compiled.Resume(context.Background(), cmd, cfg); err != nil {
			t.Fatalf("first Resume failed: %v", err)
		}
		if _, err := compiled.Resume(context.Background(), cmd, cfg); err == nil {
			t.Error("expected second Resume to fail")
		}
	})

	t.Run("missing thread id", func(t *testing.T) {
		compiled := approvalGraph(t)
		if _, err := compiled.Resume(context.Background(), Command{Resume: "x"}, Config{}); err == nil {
			t.Error("expected error resuming without thread id")
		}
	})

	t.Run("no pending interrupt on thread", func(t *testing.T) {
		compiled := approvalGraph(t)
		if _, err := compiled.Resume(context.Background(), Command{Resume: "x"}, Config{ThreadID: "fresh"}); err == nil {
			t.Error("expected error resuming a thread with no history")
		}
	})
}

// TestResume_WithUpdate verifies a resume command can carry a state update.
func TestResume_WithUpdate(t *testing.T) {
	compiled := approvalGraph(t)
	cfg := Config{ThreadID: "review"}

	state, err := compiled.Invoke(context.Background(), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	intr := state[KeyInterrupt].([]Interrupt)[0]

	final, err := compiled.Resume(context.Background(), Command{
		Resume:      "yes",
		InterruptID: intr.ID,
		Update:      State{"reviewer": "sam"},
	}, cfg)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if final["reviewer"] != "sam" {
		t.Errorf("expected resume update applied, got %v", final["reviewer"])
	}
}

// TestResume_Rejection verifies the resumed node can route away based on
// the payload.
func TestResume_Rejection(t *testing.T) {
	compiled := approvalGraph(t)
	cfg := Config{ThreadID: "review"}

	state, err := compiled.Invoke(context.Background(), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	intr := state[KeyInterrupt].([]Interrupt)[0]

	final, err := compiled.Resume(context.Background(), Command{Resume: "no", InterruptID: intr.ID}, cfg)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if _, published := final["published"]; published {
		t.Error("rejected draft must not publish")
	}
}
