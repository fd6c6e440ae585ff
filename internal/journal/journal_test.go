package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/focusflow/focusflow/internal/notify"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	events := []notify.Event{
		{AlertID: "a1", Tag: notify.TagWorkComplete, Title: "one", Outcome: "displayed", At: base},
		{AlertID: "a1", Tag: notify.TagWorkComplete, Outcome: "dismissed", Reason: "timeout", At: base.Add(5 * time.Second)},
		{Tag: notify.TagBreakComplete, Title: "two", Outcome: "suppressed", At: base.Add(time.Minute)},
	}
	for _, e := range events {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Outcome != "suppressed" || got[2].Outcome != "displayed" {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if got[1].Reason != "timeout" || got[1].AlertID != "a1" {
		t.Fatalf("unexpected dismissed entry: %+v", got[1])
	}
	if !got[2].At.Equal(base) {
		t.Fatalf("timestamp not preserved: %v", got[2].At)
	}

	limited, err := s.Recent(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d %v", len(limited), err)
	}
}

func TestSubSecondOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	_ = s.Record(ctx, notify.Event{Outcome: "first", At: base})
	_ = s.Record(ctx, notify.Event{Outcome: "second", At: base.Add(500 * time.Millisecond)})

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if got[0].Outcome != "second" {
		t.Fatalf("expected sub-second entry first, got %+v", got)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = s.Record(ctx, notify.Event{Outcome: "displayed", At: now.Add(-48 * time.Hour)})
	_ = s.Record(ctx, notify.Event{Outcome: "displayed", At: now.Add(-time.Hour)})

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned row, got %d", n)
	}
	left, _ := s.Recent(ctx, 10)
	if len(left) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", len(left))
	}
}

func TestOpenFileJournalPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s.Record(context.Background(), notify.Event{Outcome: "displayed"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	got, err := s.Recent(context.Background(), 0)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected persisted entry, got %d %v", len(got), err)
	}
	if got[0].At.IsZero() {
		t.Fatal("zero event time should default to now")
	}
}

func TestStoreIsRecorder(t *testing.T) {
	var _ notify.Recorder = openTestStore(t)
}

func TestRecentRejectsBadTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO alert_event (outcome, at) VALUES ('displayed', '2026-13-45')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := s.Recent(ctx, 10); err == nil {
		t.Fatal("expected an error for a malformed timestamp")
	}
}
