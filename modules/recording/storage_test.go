package recording

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestDirStore_PutGetDelete(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	data := []byte("webm bytes")

	info, err := store.Put(ctx, "rec_1_123.webm", data, "video/webm")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Size != int64(len(data)) {
		t.Errorf("Size = %v, want %v", info.Size, len(data))
	}

	got, gotInfo, err := store.Get(ctx, "rec_1_123.webm")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get() data = %q, want %q", got, data)
	}
	if gotInfo.ContentType != "video/webm" {
		t.Errorf("ContentType = %v, want video/webm", gotInfo.ContentType)
	}

	if err := store.Delete(ctx, "rec_1_123.webm"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, _, err := store.Get(ctx, "rec_1_123.webm"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrObjectNotFound", err)
	}
}

func TestDirStore_GetMissing(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	_, _, err = store.Get(context.Background(), "nope.webm")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Get() error = %v, want ErrObjectNotFound", err)
	}
}

func TestDirStore_DeleteMissingIsNoop(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	if err := store.Delete(context.Background(), "absent.webm"); err != nil {
		t.Errorf("Delete() on missing file error = %v, want nil", err)
	}
}

func TestDirStore_StripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir)
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	ctx := context.Background()
	if _, err := store.Put(ctx, "../escape.webm", []byte("x"), "video/webm"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// The file must land inside the store directory, not its parent.
	got, _, err := store.Get(ctx, filepath.Base("../escape.webm"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "x" {
		t.Errorf("Get() data = %q, want x", got)
	}
}
