package zip_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	vfs "github.com/duskfs/vfsmux"
	vfszip "github.com/duskfs/vfsmux/backend/zip"
)

func writeTestArchive(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.zip")

	archive, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer archive.Close()

	writer := zip.NewWriter(archive)

	entry, err := writer.Create("file.txt")
	if err != nil {
		t.Fatalf("writer.Create: %v", err)
	}

	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}

	if _, err := entry.Write(data); err != nil {
		t.Fatalf("entry.Write: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close: %v", err)
	}

	return path
}

func TestZipFileSystem_ListsEntries(t *testing.T) {
	ctx := t.Context()
	fs := vfszip.NewZipFileSystem("/zip/", writeTestArchive(t))
	if err := fs.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer fs.Shutdown(ctx)

	list := fs.GetFilesList()
	if len(list) != 1 || list[0].VirtualPath() != "/zip/file.txt" {
		t.Fatalf("GetFilesList: got %v", list)
	}
}

func TestZipFileSystem_RandomAccessRead(t *testing.T) {
	ctx := t.Context()
	fs := vfszip.NewZipFileSystem("/zip/", writeTestArchive(t))
	if err := fs.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer fs.Shutdown(ctx)

	file, ok := fs.OpenFile(ctx, "file.txt", vfs.Read)
	if !ok {
		t.Fatal("OpenFile: expected ok")
	}
	defer fs.CloseFile(ctx, file)

	file.Seek(50, vfs.SeekBegin)

	got := make([]byte, 10)
	if n := file.Read(got); n != 10 {
		t.Fatalf("Read: got %d bytes", n)
	}

	for i, b := range got {
		if want := byte(50 + i); b != want {
			t.Fatalf("byte %d: got %d, want %d", i, b, want)
		}
	}
}

func TestZipFileSystem_IsReadOnly(t *testing.T) {
	ctx := t.Context()
	fs := vfszip.NewZipFileSystem("/zip/", writeTestArchive(t))
	if err := fs.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer fs.Shutdown(ctx)

	if !fs.IsReadOnly() {
		t.Fatal("zip backend must be read-only")
	}

	if _, err := fs.CreateFile(ctx, "new.txt"); err == nil {
		t.Fatal("expected CreateFile to fail")
	}

	if err := fs.RemoveFile(ctx, "file.txt"); err == nil {
		t.Fatal("expected RemoveFile to fail")
	}

	if _, err := fs.CopyFile(ctx, "file.txt", "copy.txt", true); err == nil {
		t.Fatal("expected CopyFile to fail even with overwrite=true")
	}
}

func TestZipFileSystem_OpenForWriteFails(t *testing.T) {
	ctx := t.Context()
	fs := vfszip.NewZipFileSystem("/zip/", writeTestArchive(t))
	if err := fs.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer fs.Shutdown(ctx)

	if _, ok := fs.OpenFile(ctx, "file.txt", vfs.Write); ok {
		t.Fatal("expected OpenFile(Write) to fail on a read-only backend")
	}
}

func TestZipFileSystem_HandleInvalidAfterShutdown(t *testing.T) {
	ctx := t.Context()
	fs := vfszip.NewZipFileSystem("/zip/", writeTestArchive(t))
	if err := fs.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	file, ok := fs.OpenFile(ctx, "file.txt", vfs.Read)
	if !ok {
		t.Fatal("OpenFile: expected ok")
	}

	if err := fs.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if file.IsOpened() {
		t.Fatal("expected handle to report closed after archive shutdown")
	}

	if n := file.Read(make([]byte, 1)); n != 0 {
		t.Fatalf("Read after shutdown: got %d, want 0", n)
	}
}
