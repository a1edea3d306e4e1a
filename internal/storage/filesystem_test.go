package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteAndOpen(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, err := store.Write(context.Background(), "uploads/audio/voice.mp3", []byte("abc"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(path, store.BasePath()) {
		t.Fatalf("path %q not under base %q", path, store.BasePath())
	}
	f, err := store.Open("uploads/audio/voice.mp3")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Close()
}

func TestWriteRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write(context.Background(), "../escape.txt", []byte("x")); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}

func TestWriteFrom(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, n, err := store.WriteFrom(context.Background(), "uploads/video/clip.mp4", strings.NewReader("0123456789"))
	if err != nil {
		t.Fatalf("WriteFrom: %v", err)
	}
	if n != 10 {
		t.Fatalf("wrote %d bytes, want 10", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestRemoveOlderThan(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileStore(base)
	if err != nil {
		t.Fatal(err)
	}
	oldDir := filepath.Join(base, "outputs", "job-old")
	newDir := filepath.Join(base, "outputs", "job-new")
	for _, d := range []string{oldDir, newDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := store.RemoveOlderThan("outputs", 24*time.Hour)
	if err != nil {
		t.Fatalf("RemoveOlderThan: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d entries, want 1", removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Fatal("old job dir should be gone")
	}
	if _, err := os.Stat(newDir); err != nil {
		t.Fatal("new job dir should survive")
	}
}

func TestRemoveOlderThanEmptyRootSweepsBase(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileStore(base)
	if err != nil {
		t.Fatal(err)
	}
	oldDir := filepath.Join(base, "job-old")
	if err := os.MkdirAll(oldDir, 0o755); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := store.RemoveOlderThan("", 24*time.Hour)
	if err != nil {
		t.Fatalf("RemoveOlderThan: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d entries, want 1", removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Fatal("expired dir under base should be gone")
	}
}
