package vfs

import "context"

// IFileSystem is the backend contract per spec.md §4.6, grounded on the
// teacher's mount/backend/backend.go + mount/backend/storage.go split
// collapsed into one interface — every concrete backend (memory,
// native, zip) mounts under a VirtualFileSystem alias and satisfies
// this in full, returning ErrReadOnly from every mutator it can't
// support. Every method that can block on real I/O takes ctx as its
// first argument, per SPEC_FULL.md §6; none of these implementations
// install their own timeout or retry policy, and none of them consult
// ctx — only VirtualFileSystem.OpenFile checks ctx.Err() before it
// resolves a path.
type IFileSystem interface {
	// Initialize prepares the backend for use: indexing a directory
	// tree for native, opening the archive for zip, or simply flipping
	// a ready flag for memory.
	Initialize(ctx context.Context) error

	// Shutdown releases any backend resources and invalidates every
	// handle still open against this backend — their IsOpened starts
	// reporting false. Idempotent.
	Shutdown(ctx context.Context) error

	// IsInitialized reports whether Initialize has succeeded and
	// Shutdown has not yet been called.
	IsInitialized() bool

	// BasePath returns the backend's root on its native medium (a
	// directory, an archive path, or "" for memory).
	BasePath() string

	// VirtualPath returns the alias this backend was mounted under.
	VirtualPath() string

	// GetFilesList returns every file this backend currently holds, in
	// no particular order; VirtualFileSystem is responsible for
	// sorting and overlay de-duplication.
	GetFilesList() []FileInfo

	// IsReadOnly reports whether every mutator on this backend fails.
	IsReadOnly() bool

	// IsFileExists reports whether relPath names a file this backend
	// holds.
	IsFileExists(relPath string) bool

	// OpenFile opens relPath under the given mode and returns a handle
	// bound to this backend. On a writable backend, a missing relPath
	// is inserted as a fresh empty entry before the open is attempted
	// (matching CreateFile); ok is false if the backend is read-only
	// and relPath doesn't exist, or if Open itself rejects the mode.
	OpenFile(ctx context.Context, relPath string, mode FileMode) (file IFile, ok bool)

	// CloseFile closes a handle previously returned by OpenFile.
	CloseFile(ctx context.Context, file IFile) error

	// CreateFile creates an empty file at relPath, failing with
	// ErrExist if it's already present or ErrReadOnly on a read-only
	// backend.
	CreateFile(ctx context.Context, relPath string) (FileInfo, error)

	// RemoveFile deletes relPath, failing with ErrNotExist or
	// ErrReadOnly, and purges any expired or now-stale weak handle
	// bookkeeping for the removed entry.
	RemoveFile(ctx context.Context, relPath string) error

	// CopyFile duplicates srcRelPath's contents to dstRelPath, failing
	// with ErrExist if dstRelPath already exists and overwrite is
	// false.
	CopyFile(ctx context.Context, srcRelPath, dstRelPath string, overwrite bool) (FileInfo, error)

	// RenameFile moves srcRelPath to dstRelPath within this backend.
	RenameFile(ctx context.Context, srcRelPath, dstRelPath string) (FileInfo, error)

	// Capabilities reports the backend's static trait set.
	Capabilities() Capabilities
}
