package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{"title":"B"}`)
	writeFile(t, dir, "a.JSON", `{"title":"A"}`)
	writeFile(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	l := NewIOGraphFileLoader(dir)
	files, err := l.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %+v", files)
	}
	if files[0].ID != "a.JSON" || files[1].ID != "b.json" {
		t.Fatalf("unexpected order %q, %q", files[0].ID, files[1].ID)
	}
}

func TestListFilesMissingDir(t *testing.T) {
	l := NewIOGraphFileLoader(filepath.Join(t.TempDir(), "missing"))
	if _, err := l.ListFiles(context.Background()); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestGetFileTextIsCached(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"title":"A"}`)

	l := NewIOGraphFileLoader(dir)
	files, err := l.ListFiles(context.Background())
	if err != nil || len(files) != 1 {
		t.Fatalf("ListFiles() = %v, %v", files, err)
	}

	first, err := files[0].GetText(context.Background())
	if err != nil {
		t.Fatalf("GetText() error = %v", err)
	}
	writeFile(t, dir, "a.json", `{"title":"changed"}`)
	second, err := files[0].GetText(context.Background())
	if err != nil {
		t.Fatalf("GetText() error = %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected cached content, got %q then %q", first, second)
	}
}
