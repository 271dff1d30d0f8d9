package memory_test

import (
	"bytes"
	"testing"

	vfs "github.com/duskfs/vfsmux"
	"github.com/duskfs/vfsmux/backend/memory"
)

func newInitialized(t *testing.T) *memory.MemoryFileSystem {
	t.Helper()

	fs := memory.NewMemoryFileSystem("/mem/")
	if err := fs.Initialize(t.Context()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	return fs
}

func TestMemoryFileSystem_CreateWriteRead(t *testing.T) {
	fs := newInitialized(t)
	ctx := t.Context()

	if _, err := fs.CreateFile(ctx, "a.txt"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	file, ok := fs.OpenFile(ctx, "a.txt", vfs.ReadWrite)
	if !ok {
		t.Fatal("OpenFile: expected ok")
	}

	want := []byte("hello world")
	if n := file.Write(want); n != len(want) {
		t.Fatalf("Write: got %d, want %d", n, len(want))
	}

	file.Seek(0, vfs.SeekBegin)

	got := make([]byte, len(want))
	if n := file.Read(got); n != len(want) {
		t.Fatalf("Read: got %d, want %d", n, len(want))
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("Read: got %q, want %q", got, want)
	}

	fs.CloseFile(ctx, file)
}

func TestMemoryFileSystem_SeekClamps(t *testing.T) {
	fs := newInitialized(t)
	ctx := t.Context()
	fs.CreateFile(ctx, "a.txt")

	file, ok := fs.OpenFile(ctx, "a.txt", vfs.ReadWrite)
	if !ok {
		t.Fatal("OpenFile: expected ok")
	}
	defer fs.CloseFile(ctx, file)

	file.Write([]byte("0123456789"))

	if pos := file.Seek(1000, vfs.SeekBegin); pos != 10 {
		t.Fatalf("Seek past end: got %d, want 10", pos)
	}

	if pos := file.Seek(-1000, vfs.SeekBegin); pos != 0 {
		t.Fatalf("Seek before start: got %d, want 0", pos)
	}

	if pos := file.Seek(5, vfs.SeekEnd); pos != 5 {
		t.Fatalf("Seek(End, 5): got %d, want 5", pos)
	}
}

func TestMemoryFileSystem_CopyFileIsolatesObjects(t *testing.T) {
	fs := newInitialized(t)
	ctx := t.Context()
	fs.CreateFile(ctx, "src.txt")

	src, ok := fs.OpenFile(ctx, "src.txt", vfs.ReadWrite)
	if !ok {
		t.Fatal("OpenFile(src): expected ok")
	}
	src.Write([]byte("original"))
	fs.CloseFile(ctx, src)

	if _, err := fs.CopyFile(ctx, "src.txt", "dst.txt", false); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	src, _ = fs.OpenFile(ctx, "src.txt", vfs.ReadWrite)
	src.Seek(0, vfs.SeekBegin)
	src.Write([]byte("mutated!"))
	fs.CloseFile(ctx, src)

	dst, ok := fs.OpenFile(ctx, "dst.txt", vfs.Read)
	if !ok {
		t.Fatal("OpenFile(dst): expected ok")
	}
	defer fs.CloseFile(ctx, dst)

	got := make([]byte, 8)
	dst.Read(got)

	if string(got) != "original" {
		t.Fatalf("copy was not isolated from later writes to src: got %q", got)
	}
}

func TestMemoryFileSystem_CopyFileOverwrite(t *testing.T) {
	fs := newInitialized(t)
	ctx := t.Context()
	fs.CreateFile(ctx, "a.txt")

	a, _ := fs.OpenFile(ctx, "a.txt", vfs.ReadWrite)
	a.Write([]byte("hello"))
	fs.CloseFile(ctx, a)

	if _, err := fs.CopyFile(ctx, "a.txt", "b.txt", false); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	if _, err := fs.CopyFile(ctx, "a.txt", "b.txt", false); err == nil {
		t.Fatal("expected CopyFile to fail without overwrite when destination exists")
	}

	if _, err := fs.CopyFile(ctx, "a.txt", "b.txt", true); err != nil {
		t.Fatalf("CopyFile with overwrite: %v", err)
	}
}

func TestMemoryFileSystem_RemoveFile(t *testing.T) {
	fs := newInitialized(t)
	ctx := t.Context()
	fs.CreateFile(ctx, "a.txt")

	if err := fs.RemoveFile(ctx, "a.txt"); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}

	if fs.IsFileExists("a.txt") {
		t.Fatal("file should no longer exist")
	}

	if err := fs.RemoveFile(ctx, "a.txt"); err == nil {
		t.Fatal("expected error removing nonexistent file")
	}
}

func TestMemoryFileSystem_OpenNonexistentAutoCreates(t *testing.T) {
	fs := newInitialized(t)
	ctx := t.Context()

	file, ok := fs.OpenFile(ctx, "missing.txt", vfs.ReadWrite)
	if !ok {
		t.Fatal("expected OpenFile to auto-create a missing file on a writable backend")
	}
	defer fs.CloseFile(ctx, file)

	if !fs.IsFileExists("missing.txt") {
		t.Fatal("expected missing.txt to now exist after OpenFile")
	}

	if n := file.Size(); n != 0 {
		t.Fatalf("auto-created entry should start empty, got size %d", n)
	}
}

func TestMemoryFileSystem_HandleInvalidAfterShutdown(t *testing.T) {
	fs := newInitialized(t)
	ctx := t.Context()
	fs.CreateFile(ctx, "a.txt")

	file, ok := fs.OpenFile(ctx, "a.txt", vfs.ReadWrite)
	if !ok {
		t.Fatal("OpenFile: expected ok")
	}

	if err := fs.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if file.IsOpened() {
		t.Fatal("expected handle to report closed after backend shutdown")
	}

	if n := file.Read(make([]byte, 1)); n != 0 {
		t.Fatalf("Read after shutdown: got %d, want 0", n)
	}
}
