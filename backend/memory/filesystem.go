package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	vfs "github.com/duskfs/vfsmux"
	"github.com/duskfs/vfsmux/log"
	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

// FileEntry pairs a file's path metadata with its backing object and a
// registry of currently open handles, identified by a uuid rather than
// by pointer so RemoveFile can purge bookkeeping without holding a
// strong reference to any handle.
type FileEntry struct {
	info          vfs.FileInfo
	object        *MemoryObject
	openedHandles map[string]struct{}
}

func newFileEntry(info vfs.FileInfo, object *MemoryObject) *FileEntry {
	return &FileEntry{info: info, object: object, openedHandles: make(map[string]struct{})}
}

// MemoryFileSystem is a fully in-memory, read-write IFileSystem.
// Grounded on the teacher's backend/memory package, with the
// map[string][]byte storage replaced by MemoryObject's copy-on-write
// cell and the flat map replaced by a btree.Map for ordered listing,
// per spec.md §4.3.
type MemoryFileSystem struct {
	locker      vfs.Locker
	logger      *log.Logger
	alias       string
	initialized bool
	entries     *btree.Map[string, *FileEntry]

	// alive is shared with every *MemoryFile this backend has handed
	// out; Shutdown flips it so outstanding handles see IsOpened()
	// turn false even though each keeps its own *MemoryObject pointer.
	alive *atomic.Bool
}

// NewMemoryFileSystem constructs a MemoryFileSystem mounted under
// alias. alias is recorded for FileInfo construction; the backend
// itself has no on-disk base path. Locking defaults to MutexPolicy;
// use SetLocker before Initialize to opt into NoopPolicy.
func NewMemoryFileSystem(alias string) *MemoryFileSystem {
	return &MemoryFileSystem{
		alias:   alias,
		locker:  &vfs.MutexPolicy{},
		logger:  log.NewNop(),
		entries: btree.NewMap[string, *FileEntry](0),
		alive:   &atomic.Bool{},
	}
}

// SetLocker overrides the backend's locking policy, per spec.md §4.11.
func (fs *MemoryFileSystem) SetLocker(locker vfs.Locker) {
	fs.locker = locker
}

// SetLogger replaces the backend's logger, normally called by
// VirtualFileSystem.AddFileSystem with an alias-tagged child logger.
func (fs *MemoryFileSystem) SetLogger(logger *log.Logger) {
	fs.logger = logger
}

func (fs *MemoryFileSystem) Initialize(ctx context.Context) error {
	unlock := fs.locker.Lock()
	defer unlock()

	fs.initialized = true
	fs.alive.Store(true)

	return nil
}

func (fs *MemoryFileSystem) Shutdown(ctx context.Context) error {
	unlock := fs.locker.Lock()
	defer unlock()

	fs.alive.Store(false)
	fs.entries = btree.NewMap[string, *FileEntry](0)
	fs.initialized = false

	fs.logger.Info("memory backend %s shut down", fs.alias)

	return nil
}

func (fs *MemoryFileSystem) IsInitialized() bool {
	unlock := fs.locker.Lock()
	defer unlock()

	return fs.initialized
}

func (fs *MemoryFileSystem) BasePath() string { return "" }

func (fs *MemoryFileSystem) VirtualPath() string { return fs.alias }

func (fs *MemoryFileSystem) GetFilesList() []vfs.FileInfo {
	unlock := fs.locker.Lock()
	defer unlock()

	out := make([]vfs.FileInfo, 0, fs.entries.Len())
	fs.entries.Scan(func(_ string, entry *FileEntry) bool {
		out = append(out, entry.info)
		return true
	})

	return out
}

func (fs *MemoryFileSystem) IsReadOnly() bool { return false }

func (fs *MemoryFileSystem) IsFileExists(relPath string) bool {
	unlock := fs.locker.Lock()
	defer unlock()

	_, ok := fs.entries.Get(relPath)
	return ok
}

// OpenFile atomically inserts a fresh {FileInfo, empty MemoryObject}
// entry when relPath doesn't already exist, per spec.md §4.7 — memory
// is never read-only, so this happens unconditional on mode, matching
// original_source's MemoryFileSystem::OpenFileST try_emplace.
func (fs *MemoryFileSystem) OpenFile(ctx context.Context, relPath string, mode vfs.FileMode) (vfs.IFile, bool) {
	unlock := fs.locker.Lock()
	entry, ok := fs.entries.Get(relPath)
	if !ok {
		info := vfs.NewFileInfo(fs.alias, "", relPath)
		entry = newFileEntry(info, NewMemoryObject())
		fs.entries.Set(relPath, entry)
	}

	handleID := uuid.NewString()
	entry.openedHandles[handleID] = struct{}{}
	unlock()

	file := newMemoryFile(entry.info, entry.object, handleID, fs.alive)
	if !file.Open(mode) {
		unlock := fs.locker.Lock()
		delete(entry.openedHandles, handleID)
		unlock()

		return nil, false
	}

	return file, true
}

func (fs *MemoryFileSystem) CloseFile(ctx context.Context, file vfs.IFile) error {
	file.Close()

	mf, ok := file.(*MemoryFile)
	if !ok {
		return nil
	}

	unlock := fs.locker.Lock()
	if entry, exists := fs.entries.Get(mf.FileInfo().FilePath()); exists {
		delete(entry.openedHandles, mf.handleID)
	}
	unlock()

	return nil
}

func (fs *MemoryFileSystem) CreateFile(ctx context.Context, relPath string) (vfs.FileInfo, error) {
	unlock := fs.locker.Lock()
	defer unlock()

	if _, exists := fs.entries.Get(relPath); exists {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrExist, relPath)
	}

	info := vfs.NewFileInfo(fs.alias, "", relPath)
	fs.entries.Set(relPath, newFileEntry(info, NewMemoryObject()))

	return info, nil
}

// RemoveFile erases relPath's entry, purging any expired or now-stale
// weak handle bookkeeping first, per spec.md:161/245.
func (fs *MemoryFileSystem) RemoveFile(ctx context.Context, relPath string) error {
	unlock := fs.locker.Lock()
	defer unlock()

	entry, exists := fs.entries.Get(relPath)
	if !exists {
		return fmt.Errorf("%w: %s", vfs.ErrNotExist, relPath)
	}

	for id := range entry.openedHandles {
		delete(entry.openedHandles, id)
	}

	fs.entries.Delete(relPath)

	return nil
}

// CopyFile clones src's MemoryObject via a fresh snapshot and inserts
// it under dstRelPath, deleting any existing destination entry first
// when overwrite is true — grounded on original_source's
// MemoryFileSystem::CopyFileST.
func (fs *MemoryFileSystem) CopyFile(ctx context.Context, srcRelPath, dstRelPath string, overwrite bool) (vfs.FileInfo, error) {
	unlock := fs.locker.Lock()
	defer unlock()

	src, exists := fs.entries.Get(srcRelPath)
	if !exists {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrNotExist, srcRelPath)
	}

	if _, exists := fs.entries.Get(dstRelPath); exists {
		if !overwrite {
			return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrExist, dstRelPath)
		}

		fs.entries.Delete(dstRelPath)
	}

	info := vfs.NewFileInfo(fs.alias, "", dstRelPath)
	fs.entries.Set(dstRelPath, newFileEntry(info, src.object.Clone()))

	return info, nil
}

func (fs *MemoryFileSystem) RenameFile(ctx context.Context, srcRelPath, dstRelPath string) (vfs.FileInfo, error) {
	unlock := fs.locker.Lock()
	defer unlock()

	src, exists := fs.entries.Get(srcRelPath)
	if !exists {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrNotExist, srcRelPath)
	}

	if _, exists := fs.entries.Get(dstRelPath); exists {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrExist, dstRelPath)
	}

	info := vfs.NewFileInfo(fs.alias, "", dstRelPath)
	fs.entries.Delete(srcRelPath)
	fs.entries.Set(dstRelPath, newFileEntry(info, src.object))

	return info, nil
}

func (fs *MemoryFileSystem) Capabilities() vfs.Capabilities {
	return vfs.NewCapabilities(vfs.CapabilityEnumerable)
}
