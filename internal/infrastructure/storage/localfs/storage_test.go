package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveThenOpenRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "p1_om", strings.NewReader("<html>om</html>")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reader, err := storage.Open(context.Background(), "p1_om")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(raw) != "<html>om</html>" {
		t.Fatalf("object = %q", raw)
	}
}

func TestSaveOverwritesExistingKey(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if err := storage.Save(ctx, "k", strings.NewReader("old")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := storage.Save(ctx, "k", strings.NewReader("new")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reader, err := storage.Open(ctx, "k")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reader.Close()
	raw, _ := io.ReadAll(reader)
	if string(raw) != "new" {
		t.Fatalf("object = %q, want %q", raw, "new")
	}
}

func TestOpenMissingKeyFails(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := storage.Open(context.Background(), "absent"); err == nil {
		t.Fatal("Open() = nil error, want missing object")
	}
}
