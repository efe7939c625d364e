package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dictalabs/dicta-core/internal/config"
)

func TestHistoryDisabledIsNoOp(t *testing.T) {
	h, err := OpenHistory(context.Background(), config.HistoryConfig{Enabled: false}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	if err := h.Append(context.Background(), Revision{RevisionID: "r1"}); err != nil {
		t.Fatalf("append on disabled history: %v", err)
	}
	revs, err := h.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list on disabled history: %v", err)
	}
	if len(revs) != 0 {
		t.Fatalf("expected no revisions, got %d", len(revs))
	}
}

func TestHistoryAppendAndList(t *testing.T) {
	cfg := config.HistoryConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "history.db")}
	h, err := OpenHistory(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	h.clock = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	if err := h.Append(context.Background(), Revision{RevisionID: "rev-a", Surface: "main", Document: []byte(`{"a":1}`)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h.clock = func() time.Time { return time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC) }
	if err := h.Append(context.Background(), Revision{RevisionID: "rev-b", Surface: "hotkey-dialog", Document: []byte(`{"b":2}`)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	revs, err := h.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revs))
	}
	if revs[0].RevisionID != "rev-b" {
		t.Fatalf("expected newest first, got %q", revs[0].RevisionID)
	}
	if string(revs[1].Document) != `{"a":1}` {
		t.Fatalf("unexpected document: %s", revs[1].Document)
	}
}

func TestHistoryPruneByDaysAndCap(t *testing.T) {
	cfg := config.HistoryConfig{
		Enabled:       true,
		Path:          filepath.Join(t.TempDir(), "history.db"),
		RetentionDays: 1,
		MaxRevisions:  1,
	}
	h, err := OpenHistory(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	h.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := h.Append(context.Background(), Revision{RevisionID: "old", Document: []byte("{}")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	h.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := h.Append(context.Background(), Revision{RevisionID: "new-1", Document: []byte("{}")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := h.Append(context.Background(), Revision{RevisionID: "new-2", Document: []byte("{}")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := h.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	revs, err := h.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("expected 1 revision after prune, got %d", len(revs))
	}
	if revs[0].RevisionID != "new-2" {
		t.Fatalf("expected newest revision kept, got %q", revs[0].RevisionID)
	}
}
