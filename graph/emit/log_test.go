package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// TestLogEmitter_Text verifies human-readable output.
func TestLogEmitter_Text(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		ThreadID:  "t1",
		Iteration: 2,
		NodeID:    "work",
		Msg:       "node_start",
	})

	line := buf.String()
	if !strings.HasPrefix(line, "[node_start]") {
		t.Errorf("expected [node_start] prefix, got %q", line)
	}
	for _, want := range []string{"threadID=t1", "iteration=2", "nodeID=work"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "meta=") {
		t.Errorf("meta should be omitted when empty: %q", line)
	}
}

// TestLogEmitter_TextMeta verifies meta renders as JSON.
func TestLogEmitter_TextMeta(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		ThreadID: "t1",
		NodeID:   "work",
		Msg:      "node_end",
		Meta:     map[string]interface{}{"duration_ms": 12},
	})

	if !strings.Contains(buf.String(), `meta={"duration_ms":12}`) {
		t.Errorf("expected meta JSON, got %q", buf.String())
	}
}

// TestLogEmitter_JSON verifies JSONL output parses back.
func TestLogEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{ThreadID: "t1", Iteration: 1, NodeID: "work", Msg: "node_start"})
	emitter.Emit(Event{ThreadID: "t1", Iteration: 1, NodeID: "work", Msg: "node_end"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}

	var decoded struct {
		ThreadID  string `json:"threadID"`
		Iteration int    `json:"iteration"`
		NodeID    string `json:"nodeID"`
		Msg       string `json:"msg"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if decoded.ThreadID != "t1" || decoded.Msg != "node_start" {
		t.Errorf("unexpected decode: %+v", decoded)
	}
}

// TestLogEmitter_NilWriter verifies the stdout fallback does not panic.
func TestLogEmitter_NilWriter(t *testing.T) {
	emitter := NewLogEmitter(nil, false)
	if emitter == nil {
		t.Fatal("expected emitter")
	}
}
