package vfs_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	vfs "github.com/duskfs/vfsmux"
	"github.com/duskfs/vfsmux/backend/memory"
	"github.com/duskfs/vfsmux/backend/native"
	vfszip "github.com/duskfs/vfsmux/backend/zip"
	"github.com/duskfs/vfsmux/log"
)

func newTestVfs(t *testing.T) *vfs.VirtualFileSystem {
	t.Helper()
	return vfs.NewVfs(vfs.WithLogger(log.NewNop()))
}

func TestVfs_SingleBackendRoundTrip(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()

	if err := v.AddFileSystem(ctx, "/mem/", memory.NewMemoryFileSystem("/mem/")); err != nil {
		t.Fatalf("AddFileSystem: %v", err)
	}

	file, err := v.OpenFile(ctx, "/mem/a.txt", vfs.ReadWrite|vfs.Truncate)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	file.Write([]byte("payload"))
	file.Seek(0, vfs.SeekBegin)

	got := make([]byte, len("payload"))
	file.Read(got)
	file.Close()

	if string(got) != "payload" {
		t.Fatalf("got %q, want %q", got, "payload")
	}
}

func TestVfs_LongestPrefixMatch(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()

	root := memory.NewMemoryFileSystem("/")
	nested := memory.NewMemoryFileSystem("/data/")

	if err := v.AddFileSystem(ctx, "/", root); err != nil {
		t.Fatalf("AddFileSystem(root): %v", err)
	}
	if err := v.AddFileSystem(ctx, "/data/", nested); err != nil {
		t.Fatalf("AddFileSystem(nested): %v", err)
	}

	root.CreateFile(ctx, "top.txt")
	nested.CreateFile(ctx, "inner.txt")

	if !v.IsFileExists("/top.txt") {
		t.Fatal("/top.txt should resolve against the root mount")
	}

	if !v.IsFileExists("/data/inner.txt") {
		t.Fatal("/data/inner.txt should resolve against the longest-matching mount")
	}

	if v.IsFileExists("/data/top.txt") {
		t.Fatal("/data/top.txt should not exist under the nested mount")
	}
}

func TestVfs_OverlayNewestWins(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()

	base := memory.NewMemoryFileSystem("/game/")
	patch := memory.NewMemoryFileSystem("/game/")

	if err := v.AddFileSystem(ctx, "/game/", base); err != nil {
		t.Fatalf("AddFileSystem(base): %v", err)
	}

	base.CreateFile(ctx, "asset.dat")
	bf, _ := base.OpenFile(ctx, "asset.dat", vfs.ReadWrite)
	bf.Write([]byte("base"))
	base.CloseFile(ctx, bf)

	if err := v.AddFileSystem(ctx, "/game/", patch); err != nil {
		t.Fatalf("AddFileSystem(patch): %v", err)
	}

	patch.CreateFile(ctx, "asset.dat")
	pf, _ := patch.OpenFile(ctx, "asset.dat", vfs.ReadWrite)
	pf.Write([]byte("patched"))
	patch.CloseFile(ctx, pf)

	file, err := v.OpenFile(ctx, "/game/asset.dat", vfs.Read)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer file.Close()

	got := make([]byte, 7)
	n := file.Read(got)

	if string(got[:n]) != "patched" {
		t.Fatalf("overlay should prefer the newest mount: got %q", got[:n])
	}
}

func TestVfs_WriteFallsBackToOldestBackend(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()

	main := memory.NewMemoryFileSystem("/game/")
	overlay := memory.NewMemoryFileSystem("/game/")

	v.AddFileSystem(ctx, "/game/", main)
	v.AddFileSystem(ctx, "/game/", overlay)

	file, err := v.OpenFile(ctx, "/game/new.save", vfs.ReadWrite|vfs.Truncate)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	file.Close()

	if !main.IsFileExists("new.save") {
		t.Fatal("a new file should be created on the oldest (main) backend")
	}

	if overlay.IsFileExists("new.save") {
		t.Fatal("the overlay backend should not receive the new file")
	}
}

func TestVfs_ZipBackendIsReadOnlyThroughMultiplexer(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()

	archivePath := filepath.Join(t.TempDir(), "assets.zip")
	archive, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	writer := zip.NewWriter(archive)
	entry, _ := writer.Create("readme.txt")
	entry.Write([]byte("packaged"))
	writer.Close()
	archive.Close()

	zfs := vfszip.NewZipFileSystem("/zip/", archivePath)
	if err := v.AddFileSystem(ctx, "/zip/", zfs); err != nil {
		t.Fatalf("AddFileSystem: %v", err)
	}

	if _, err := v.OpenFile(ctx, "/zip/readme.txt", vfs.Write); err == nil {
		t.Fatal("expected write-mode open against a zip mount to fail")
	}

	file, err := v.OpenFile(ctx, "/zip/readme.txt", vfs.Read)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer file.Close()

	got := make([]byte, len("packaged"))
	file.Read(got)

	if string(got) != "packaged" {
		t.Fatalf("got %q", got)
	}
}

func TestVfs_NativeBackendMount(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "on-disk.txt"), []byte("disk"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	nfs := native.NewNativeFileSystem("/disk/", dir)
	if err := v.AddFileSystem(ctx, "/disk/", nfs); err != nil {
		t.Fatalf("AddFileSystem: %v", err)
	}

	if !v.IsFileExists("/disk/on-disk.txt") {
		t.Fatal("expected native backend file to be visible through the multiplexer")
	}
}

func TestVfs_ListAllFilesSortedAndDeduped(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()

	a := memory.NewMemoryFileSystem("/a/")
	b := memory.NewMemoryFileSystem("/b/")
	overlay := memory.NewMemoryFileSystem("/a/")

	v.AddFileSystem(ctx, "/a/", a)
	v.AddFileSystem(ctx, "/b/", b)
	v.AddFileSystem(ctx, "/a/", overlay)

	a.CreateFile(ctx, "z.txt")
	a.CreateFile(ctx, "m.txt")
	b.CreateFile(ctx, "a.txt")
	overlay.CreateFile(ctx, "z.txt")

	list := v.ListAllFiles()
	if len(list) != 3 {
		t.Fatalf("ListAllFiles: got %d entries, want 3", len(list))
	}

	for i := 1; i < len(list); i++ {
		if !list[i-1].Less(list[i]) {
			t.Fatalf("ListAllFiles is not sorted at index %d", i)
		}
	}
}

func TestVfs_CloseIsIdempotentPerHandle(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()
	v.AddFileSystem(ctx, "/mem/", memory.NewMemoryFileSystem("/mem/"))

	file, err := v.OpenFile(ctx, "/mem/a.txt", vfs.ReadWrite)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	file.Close()
	file.Close()

	if file.IsOpened() {
		t.Fatal("file should report closed after Close")
	}

	if n := file.Read(make([]byte, 1)); n != 0 {
		t.Fatal("Read after Close should return 0")
	}
}

func TestVfs_UnregisterAliasShutsDownBackends(t *testing.T) {
	v := newTestVfs(t)
	ctx := t.Context()
	mem := memory.NewMemoryFileSystem("/mem/")

	v.AddFileSystem(ctx, "/mem/", mem)

	if err := v.UnregisterAlias(ctx, "/mem/"); err != nil {
		t.Fatalf("UnregisterAlias: %v", err)
	}

	if mem.IsInitialized() {
		t.Fatal("expected the unregistered backend to be shut down")
	}

	if _, err := v.OpenFile(ctx, "/mem/a.txt", vfs.ReadWrite); err == nil {
		t.Fatal("expected OpenFile to fail once the alias is unregistered")
	}
}
