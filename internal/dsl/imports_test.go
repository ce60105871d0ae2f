package dsl

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestImportResolverDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "kind: rule\nid: a\nwhen: \"amount > 1\"\ninclude:\n  - include: b.yaml\n")
	writeFile(t, dir, "b.yaml", "kind: rule\nid: b\nwhen: \"amount > 1\"\ninclude:\n  - include: a.yaml\n")

	r := NewImportResolver(dir)
	_, err := r.LoadAll([]string{"a.yaml"})
	if err == nil {
		t.Fatal("expected cyclic import error")
	}
	if _, ok := err.(*CyclicImportError); !ok {
		t.Fatalf("expected *CyclicImportError, got %T: %v", err, err)
	}
}

func TestImportResolverLoadsTransitively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "kind: rule\nid: base\nwhen: \"amount > 1\"\n")
	writeFile(t, dir, "main.yaml", "kind: rule\nid: main\nwhen: \"amount > 1\"\ninclude:\n  - include: base.yaml\n")

	r := NewImportResolver(dir)
	docs, err := r.LoadAll([]string{"main.yaml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents (main + base), got %d", len(docs))
	}
}
