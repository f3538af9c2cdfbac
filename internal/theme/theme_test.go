package theme

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsToLight(t *testing.T) {
	s := NewStore(t.TempDir())
	if got := s.Load(); got != Light {
		t.Fatalf("Load = %q, want light", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	if err := s.Save(Dark); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := s.Load(); got != Dark {
		t.Fatalf("Load = %q, want dark", got)
	}

	// The key is also the filename.
	if _, err := os.Stat(filepath.Join(dir, Key)); err != nil {
		t.Fatalf("preference file missing: %v", err)
	}
}

func TestSaveRejectsUnknownTheme(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save("sepia"); err == nil {
		t.Fatal("expected error for unknown theme")
	}
}

func TestLoadIgnoresCorruptValue(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, Key), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := NewStore(dir).Load(); got != Light {
		t.Fatalf("Load = %q, want light fallback", got)
	}
}

func TestToggle(t *testing.T) {
	s := NewStore(t.TempDir())

	got, err := s.Toggle()
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if got != Dark {
		t.Fatalf("first toggle = %q, want dark", got)
	}

	got, err = s.Toggle()
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if got != Light {
		t.Fatalf("second toggle = %q, want light", got)
	}
}
