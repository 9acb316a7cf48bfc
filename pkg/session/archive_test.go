package session

import (
	"context"
	"path/filepath"
	"testing"
)

func newArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "state", "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchive_RecordSessionUpserts(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	cc := NewConversationContext("s1")

	if err := a.RecordSession(ctx, cc); err != nil {
		t.Fatalf("record: %v", err)
	}
	cc.AddMessage("user", "hi")
	if err := a.RecordSession(ctx, cc); err != nil {
		t.Fatalf("re-record must upsert: %v", err)
	}

	var count int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single upserted row, got %d", count)
	}
}

func TestArchive_MessagesRoundTrip(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	cc := NewConversationContext("s1")
	cc.AddMessage("user", "find the report")
	cc.AddMessage("assistant", "it is attached")

	for _, m := range cc.Messages {
		if err := a.AppendMessage(ctx, cc.SessionID, m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := a.Messages(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 archived messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Content != "it is attached" {
		t.Fatalf("messages must return oldest first, got %+v", msgs)
	}
}

func TestArchive_MessagesUnknownSessionEmpty(t *testing.T) {
	a := newArchive(t)
	msgs, err := a.Messages(context.Background(), "missing", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("unknown session must yield no messages, got %+v", msgs)
	}
}
