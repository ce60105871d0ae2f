package listsvc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryBackendAddContainsRemove(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	svc := New(b)

	ok, err := svc.Contains(ctx, "blocklist", "1.2.3.4")
	if err != nil || ok {
		t.Fatalf("expected absent value to not be contained, got ok=%v err=%v", ok, err)
	}

	if err := svc.Add(ctx, "blocklist", "1.2.3.4"); err != nil {
		t.Fatalf("add: %v", err)
	}
	ok, err = svc.Contains(ctx, "blocklist", "1.2.3.4")
	if err != nil || !ok {
		t.Fatalf("expected value to be contained after add, got ok=%v err=%v", ok, err)
	}

	if err := svc.Remove(ctx, "blocklist", "1.2.3.4"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ok, err = svc.Contains(ctx, "blocklist", "1.2.3.4")
	if err != nil || ok {
		t.Fatalf("expected value gone after remove, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryBackendGetAll(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	_ = b.Add(ctx, "watchlist", "a")
	_ = b.Add(ctx, "watchlist", "b")

	all, err := b.GetAll(ctx, "watchlist")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %v", all)
	}
}

func TestMemoryBackendUnknownListIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	all, err := b.GetAll(ctx, "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty, got %v", all)
	}
}

func TestFileBackendLoadsAndIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocklist.txt"), []byte("1.2.3.4\n5.6.7.8\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	fb, err := NewFileBackend(dir, nil)
	if err != nil {
		t.Fatalf("new file backend: %v", err)
	}
	defer fb.Close()

	ctx := context.Background()
	ok, err := fb.Contains(ctx, "blocklist", "1.2.3.4")
	if err != nil || !ok {
		t.Fatalf("expected loaded value to be contained, got ok=%v err=%v", ok, err)
	}

	ok, err = fb.Contains(ctx, "blocklist", "not-there")
	if err != nil || ok {
		t.Fatalf("expected absent value to not be contained, got ok=%v err=%v", ok, err)
	}

	if err := fb.Add(ctx, "blocklist", "x"); err != ErrReadOnly {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}
