package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	ctx := context.Background()

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	if _, ok, err := f.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}

	if err := f.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := f.Get(ctx, "theme")
	if err != nil || !ok || v != "dark" {
		t.Fatalf("Get after Set: v=%q ok=%v err=%v", v, ok, err)
	}

	// Values survive a reopen.
	f2, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, _ = f2.Get(ctx, "theme")
	if !ok || v != "dark" {
		t.Fatalf("value lost across reopen: v=%q ok=%v", v, ok)
	}
}

func TestFileDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	ctx := context.Background()

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := f.Set(ctx, "key", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := f.Get(ctx, "key"); ok {
		t.Fatal("key still present after Delete")
	}

	// Deleting a missing key is a no-op.
	if err := f.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete of missing key: %v", err)
	}
}

func TestFileMalformedStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile on malformed content: %v", err)
	}
	if _, ok, _ := f.Get(context.Background(), "anything"); ok {
		t.Fatal("malformed file must start the store empty")
	}
}

func TestFileCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.json")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := f.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("store file not written: %v", err)
	}
}
