package progress

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "progress.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("dQw4w9WgXcQ", 42.5, 300); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	pos, found, err := store.Get("dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected position found")
	}
	if pos.Position != 42.5 || pos.Duration != 300 {
		t.Errorf("expected 42.5/300, got %f/%f", pos.Position, pos.Duration)
	}
	if pos.UpdatedAt.IsZero() {
		t.Error("expected updated_at populated")
	}
}

func TestGetUnknownMedia(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Get("never-seen")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("expected no position for unknown media")
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("dQw4w9WgXcQ", 10, 300); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save("dQw4w9WgXcQ", 55, 300); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	pos, _, err := store.Get("dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if pos.Position != 55 {
		t.Errorf("expected overwritten position 55, got %f", pos.Position)
	}
}

func TestNegativePositionClamped(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("dQw4w9WgXcQ", -3, 300); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	pos, _, _ := store.Get("dQw4w9WgXcQ")
	if pos.Position != 0 {
		t.Errorf("expected clamped position 0, got %f", pos.Position)
	}
}

func TestEmptyMediaIDRejected(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("", 10, 300); err == nil {
		t.Error("expected an error for an empty media id")
	}
}

func TestRecentOrdering(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"first", "second", "third"} {
		if err := store.Save(id, 1, 100); err != nil {
			t.Fatalf("save %s failed: %v", id, err)
		}
	}

	positions, err := store.Recent(2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}
	if positions[0].MediaID != "third" || positions[1].MediaID != "second" {
		t.Errorf("expected newest first, got %s then %s", positions[0].MediaID, positions[1].MediaID)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("dQw4w9WgXcQ", 10, 300); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete("dQw4w9WgXcQ"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	_, found, _ := store.Get("dQw4w9WgXcQ")
	if found {
		t.Error("expected position gone after delete")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")

	store := NewStore(path)
	if err := store.Open(); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := store.Save("dQw4w9WgXcQ", 42, 300); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened := NewStore(path)
	if err := reopened.Open(); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	pos, found, err := reopened.Get("dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found || pos.Position != 42 {
		t.Errorf("expected position to survive reopen, got found=%v pos=%f", found, pos.Position)
	}
}

func TestCompleted(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want bool
	}{
		{"watched to the end", Position{Position: 300, Duration: 300}, true},
		{"mid-way", Position{Position: 150, Duration: 300}, false},
		{"unknown duration", Position{Position: 150, Duration: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.Completed(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestOperationsOnClosedStore(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "progress.db"))

	if err := store.Save("x", 1, 2); err == nil {
		t.Error("expected save on an unopened store to fail")
	}
	if _, _, err := store.Get("x"); err == nil {
		t.Error("expected get on an unopened store to fail")
	}
}
