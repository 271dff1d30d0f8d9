package native

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	vfs "github.com/duskfs/vfsmux"
	"github.com/duskfs/vfsmux/log"
	"github.com/google/uuid"
)

// fileEntry pairs a file's path metadata with a registry of currently
// open handles, identified by uuid the same way backend/memory and
// backend/zip track theirs, so every backend's table row keeps weak
// handle bookkeeping uniformly.
type fileEntry struct {
	info          vfs.FileInfo
	openedHandles map[string]struct{}
}

func newFileEntry(info vfs.FileInfo) *fileEntry {
	return &fileEntry{info: info, openedHandles: make(map[string]struct{})}
}

// NativeFileSystem is an on-disk backend rooted at a single directory.
// Grounded on the teacher's backend/local package (resolvePath +
// os.* calls), reworked so Initialize walks the tree once up front to
// populate GetFilesList/IsFileExists the way MemoryFileSystem and
// ZipFileSystem do, per spec.md §4.4.
type NativeFileSystem struct {
	locker      vfs.Locker
	logger      *log.Logger
	alias       string
	root        string
	initialized bool
	readOnly    bool
	files       map[string]*fileEntry

	// alive is shared with every *NativeFile this backend has handed
	// out; Shutdown flips it so outstanding handles see IsOpened()
	// turn false even though each still owns a live *os.File.
	alive *atomic.Bool
}

// NewNativeFileSystem constructs a backend rooted at root, mounted
// under alias.
func NewNativeFileSystem(alias, root string) *NativeFileSystem {
	return &NativeFileSystem{
		alias:  alias,
		root:   filepath.Clean(root),
		locker: &vfs.MutexPolicy{},
		logger: log.NewNop(),
		files:  make(map[string]*fileEntry),
		alive:  &atomic.Bool{},
	}
}

// SetLocker overrides the backend's locking policy, per spec.md §4.11.
func (fs *NativeFileSystem) SetLocker(locker vfs.Locker) {
	fs.locker = locker
}

// SetLogger replaces the backend's logger, normally called by
// VirtualFileSystem.AddFileSystem with an alias-tagged child logger.
func (fs *NativeFileSystem) SetLogger(logger *log.Logger) {
	fs.logger = logger
}

func (fs *NativeFileSystem) resolvePath(relPath string) string {
	return filepath.Join(fs.root, filepath.FromSlash(relPath))
}

// Initialize walks the root directory depth-first, indexing every
// regular file it finds. A root whose owner-write bit is missing is
// treated as a read-only mount, matching spec.md §4.4's detection
// rule.
func (fs *NativeFileSystem) Initialize(ctx context.Context) error {
	unlock := fs.locker.Lock()
	defer unlock()

	rootInfo, err := os.Stat(fs.root)
	if err != nil {
		return fmt.Errorf("vfsmux/native: stat root %s: %w", fs.root, err)
	}

	fs.readOnly = rootInfo.Mode().Perm()&0200 == 0

	err = filepath.Walk(fs.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(fs.root, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)
		fs.files[rel] = newFileEntry(vfs.NewFileInfo(fs.alias, fs.root, rel))

		return nil
	})
	if err != nil {
		return fmt.Errorf("vfsmux/native: indexing %s: %w", fs.root, err)
	}

	fs.initialized = true
	fs.alive.Store(true)

	return nil
}

func (fs *NativeFileSystem) Shutdown(ctx context.Context) error {
	unlock := fs.locker.Lock()
	defer unlock()

	fs.alive.Store(false)
	fs.files = make(map[string]*fileEntry)
	fs.initialized = false

	fs.logger.Info("native backend %s (%s) shut down", fs.alias, fs.root)

	return nil
}

func (fs *NativeFileSystem) IsInitialized() bool {
	unlock := fs.locker.Lock()
	defer unlock()

	return fs.initialized
}

func (fs *NativeFileSystem) BasePath() string { return fs.root }

func (fs *NativeFileSystem) VirtualPath() string { return fs.alias }

func (fs *NativeFileSystem) GetFilesList() []vfs.FileInfo {
	unlock := fs.locker.Lock()
	defer unlock()

	out := make([]vfs.FileInfo, 0, len(fs.files))
	for _, entry := range fs.files {
		out = append(out, entry.info)
	}

	return out
}

func (fs *NativeFileSystem) IsReadOnly() bool {
	unlock := fs.locker.Lock()
	defer unlock()

	return fs.readOnly
}

func (fs *NativeFileSystem) IsFileExists(relPath string) bool {
	unlock := fs.locker.Lock()
	defer unlock()

	_, ok := fs.files[relPath]
	return ok
}

// OpenFile auto-creates relPath on disk when it isn't already indexed
// and the backend is writable, unconditional on the requested mode —
// grounded on original_source's NativeFileSystem::OpenFile, which
// resets file.reset(new NativeFile(filePath)) whenever
// !isExists && !IsReadOnly().
func (fs *NativeFileSystem) OpenFile(ctx context.Context, relPath string, mode vfs.FileMode) (vfs.IFile, bool) {
	unlock := fs.locker.Lock()
	entry, ok := fs.files[relPath]
	readOnly := fs.readOnly
	if !ok {
		if readOnly {
			unlock()
			return nil, false
		}

		fullPath := fs.resolvePath(relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			unlock()
			return nil, false
		}

		f, err := os.Create(fullPath)
		if err != nil {
			unlock()
			return nil, false
		}
		f.Close()

		entry = newFileEntry(vfs.NewFileInfo(fs.alias, fs.root, relPath))
		fs.files[relPath] = entry
	}

	if readOnly && mode.CanWrite() {
		unlock()
		return nil, false
	}

	handleID := uuid.NewString()
	entry.openedHandles[handleID] = struct{}{}
	unlock()

	file := newNativeFile(entry.info, fs.resolvePath(relPath), handleID, fs.alive)
	if !file.Open(mode) {
		unlock := fs.locker.Lock()
		delete(entry.openedHandles, handleID)
		unlock()

		return nil, false
	}

	return file, true
}

func (fs *NativeFileSystem) CloseFile(ctx context.Context, file vfs.IFile) error {
	file.Close()

	nf, ok := file.(*NativeFile)
	if !ok {
		return nil
	}

	unlock := fs.locker.Lock()
	if entry, exists := fs.files[nf.FileInfo().FilePath()]; exists {
		delete(entry.openedHandles, nf.handleID)
	}
	unlock()

	return nil
}

func (fs *NativeFileSystem) CreateFile(ctx context.Context, relPath string) (vfs.FileInfo, error) {
	unlock := fs.locker.Lock()
	defer unlock()

	if fs.readOnly {
		return vfs.FileInfo{}, vfs.ErrReadOnly
	}

	if _, exists := fs.files[relPath]; exists {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrExist, relPath)
	}

	fullPath := fs.resolvePath(relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return vfs.FileInfo{}, err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return vfs.FileInfo{}, err
	}
	file.Close()

	info := vfs.NewFileInfo(fs.alias, fs.root, relPath)
	fs.files[relPath] = newFileEntry(info)

	return info, nil
}

// RemoveFile erases relPath's entry and the underlying OS file,
// purging any expired or now-stale weak handle bookkeeping first, per
// spec.md:161/245.
func (fs *NativeFileSystem) RemoveFile(ctx context.Context, relPath string) error {
	unlock := fs.locker.Lock()
	defer unlock()

	if fs.readOnly {
		return vfs.ErrReadOnly
	}

	entry, exists := fs.files[relPath]
	if !exists {
		return fmt.Errorf("%w: %s", vfs.ErrNotExist, relPath)
	}

	if err := os.Remove(fs.resolvePath(relPath)); err != nil {
		return err
	}

	for id := range entry.openedHandles {
		delete(entry.openedHandles, id)
	}

	delete(fs.files, relPath)

	return nil
}

// CopyFile performs a real on-disk copy, refusing an existing
// destination unless overwrite is true, in which case the destination
// is removed and replaced.
func (fs *NativeFileSystem) CopyFile(ctx context.Context, srcRelPath, dstRelPath string, overwrite bool) (vfs.FileInfo, error) {
	unlock := fs.locker.Lock()
	defer unlock()

	if fs.readOnly {
		return vfs.FileInfo{}, vfs.ErrReadOnly
	}

	if _, exists := fs.files[srcRelPath]; !exists {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrNotExist, srcRelPath)
	}

	if _, exists := fs.files[dstRelPath]; exists {
		if !overwrite {
			return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrExist, dstRelPath)
		}

		if err := os.Remove(fs.resolvePath(dstRelPath)); err != nil {
			return vfs.FileInfo{}, err
		}

		delete(fs.files, dstRelPath)
	}

	src, err := os.Open(fs.resolvePath(srcRelPath))
	if err != nil {
		return vfs.FileInfo{}, err
	}
	defer src.Close()

	dstFull := fs.resolvePath(dstRelPath)
	if err := os.MkdirAll(filepath.Dir(dstFull), 0755); err != nil {
		return vfs.FileInfo{}, err
	}

	dst, err := os.Create(dstFull)
	if err != nil {
		return vfs.FileInfo{}, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return vfs.FileInfo{}, err
	}

	info := vfs.NewFileInfo(fs.alias, fs.root, dstRelPath)
	fs.files[dstRelPath] = newFileEntry(info)

	return info, nil
}

func (fs *NativeFileSystem) RenameFile(ctx context.Context, srcRelPath, dstRelPath string) (vfs.FileInfo, error) {
	unlock := fs.locker.Lock()
	defer unlock()

	if fs.readOnly {
		return vfs.FileInfo{}, vfs.ErrReadOnly
	}

	if _, exists := fs.files[srcRelPath]; !exists {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrNotExist, srcRelPath)
	}

	if _, exists := fs.files[dstRelPath]; exists {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrExist, dstRelPath)
	}

	dstFull := fs.resolvePath(dstRelPath)
	if err := os.MkdirAll(filepath.Dir(dstFull), 0755); err != nil {
		return vfs.FileInfo{}, err
	}

	if err := os.Rename(fs.resolvePath(srcRelPath), dstFull); err != nil {
		return vfs.FileInfo{}, err
	}

	info := vfs.NewFileInfo(fs.alias, fs.root, dstRelPath)
	delete(fs.files, srcRelPath)
	fs.files[dstRelPath] = newFileEntry(info)

	return info, nil
}

func (fs *NativeFileSystem) Capabilities() vfs.Capabilities {
	if fs.IsReadOnly() {
		return vfs.NewCapabilities(vfs.CapabilityEnumerable, vfs.CapabilityReadOnly)
	}

	return vfs.NewCapabilities(vfs.CapabilityEnumerable)
}
