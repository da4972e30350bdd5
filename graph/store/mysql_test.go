package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

// mysqlStore connects to the database named by MYSQL_TEST_DSN, skipping the
// test when the variable is unset. Example DSN:
//
//	root:secret@tcp(localhost:3306)/stategraph_test?parseTime=true
func mysqlStore(t *testing.T, max int) *MySQLStore[testState] {
	t.Helper()

	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set; skipping MySQL integration test")
	}

	st, err := NewMySQLStoreWithLimit[testState](dsn, max)
	if err != nil {
		t.Fatalf("NewMySQLStore failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// TestMySQLStore_RoundTrip verifies save/get against a live database.
func TestMySQLStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := mysqlStore(t, DefaultMaxSnapshots)
	thread := "mysql-roundtrip"
	t.Cleanup(func() { _ = st.Clear(ctx, thread) })

	if err := st.Save(ctx, thread, snapAt(thread, "c1", 1)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := st.Save(ctx, thread, snapAt(thread, "c2", 2)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	latest, err := st.Get(ctx, thread, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if latest.ID != "c2" {
		t.Errorf("expected latest c2, got %q", latest.ID)
	}

	specific, err := st.Get(ctx, thread, "c1")
	if err != nil {
		t.Fatalf("Get by id failed: %v", err)
	}
	if specific.ID != "c1" {
		t.Errorf("expected c1, got %q", specific.ID)
	}

	if _, err := st.Get(ctx, "mysql-unknown-thread", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestMySQLStore_Eviction verifies the derived-table cap trim.
func TestMySQLStore_Eviction(t *testing.T) {
	ctx := context.Background()
	st := mysqlStore(t, 3)
	thread := "mysql-eviction"
	t.Cleanup(func() { _ = st.Clear(ctx, thread) })

	for i := 1; i <= 5; i++ {
		if err := st.Save(ctx, thread, snapAt(thread, fmt.Sprintf("ev-c%d", i), i)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	history, err := st.List(ctx, thread)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(history))
	}
	if history[0].ID != "ev-c3" {
		t.Errorf("expected oldest surviving ev-c3, got %q", history[0].ID)
	}
}

// TestMySQLStore_EmptyThreadID verifies the shared empty-id contract without
// needing a live database.
func TestMySQLStore_EmptyThreadID(t *testing.T) {
	st := &MySQLStore[testState]{max: 10}

	var ckErr *CheckpointError
	if err := st.Save(context.Background(), "", snapAt("", "c", 0)); !errors.As(err, &ckErr) {
		t.Errorf("Save: expected *CheckpointError, got %v", err)
	}
	if _, err := st.Get(context.Background(), "", ""); !errors.As(err, &ckErr) {
		t.Errorf("Get: expected *CheckpointError, got %v", err)
	}
}
