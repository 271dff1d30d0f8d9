package zip

import (
	"archive/zip"
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	vfs "github.com/duskfs/vfsmux"
	"github.com/duskfs/vfsmux/log"
	"github.com/google/uuid"
)

// entry pairs an archive file's metadata with its FileInfo, indexed at
// Initialize time, plus a registry of handles currently open against
// it (uuid-keyed, the same weak-handle stand-in backend/memory uses).
type entry struct {
	info          vfs.FileInfo
	file          *zip.File
	openedHandles map[string]struct{}
}

// ZipFileSystem is a read-only backend over a single .zip archive's
// central directory, grounded on the pack's golang-tools zipfs wrapper
// (itself built on archive/zip), per spec.md §4.9. Every mutator
// returns ErrReadOnly.
type ZipFileSystem struct {
	locker      vfs.Locker
	logger      *log.Logger
	alias       string
	archivePath string
	reader      *zip.ReadCloser
	initialized bool
	entries     map[string]entry

	// alive is shared with every *ZipFile this backend has handed out;
	// Shutdown flips it (in addition to closing the real
	// *zip.ReadCloser) so outstanding handles see IsOpened() turn
	// false, per spec.md §5's "any outstanding handle then sees
	// IsOpened() == false."
	alive *atomic.Bool
}

// NewZipFileSystem constructs a backend over the archive at
// archivePath, mounted under alias.
func NewZipFileSystem(alias, archivePath string) *ZipFileSystem {
	return &ZipFileSystem{
		alias:       alias,
		archivePath: archivePath,
		locker:      &vfs.MutexPolicy{},
		logger:      log.NewNop(),
		entries:     make(map[string]entry),
		alive:       &atomic.Bool{},
	}
}

// SetLocker overrides the backend's locking policy, per spec.md §4.11.
func (fs *ZipFileSystem) SetLocker(locker vfs.Locker) {
	fs.locker = locker
}

// SetLogger replaces the backend's logger, normally called by
// VirtualFileSystem.AddFileSystem with an alias-tagged child logger.
func (fs *ZipFileSystem) SetLogger(logger *log.Logger) {
	fs.logger = logger
}

func (fs *ZipFileSystem) Initialize(ctx context.Context) error {
	unlock := fs.locker.Lock()
	defer unlock()

	reader, err := zip.OpenReader(fs.archivePath)
	if err != nil {
		return fmt.Errorf("vfsmux/zip: opening %s: %w", fs.archivePath, err)
	}

	fs.reader = reader

	for _, file := range reader.File {
		if strings.HasSuffix(file.Name, "/") {
			continue
		}

		fs.entries[file.Name] = entry{
			info:          vfs.NewFileInfo(fs.alias, "", file.Name),
			file:          file,
			openedHandles: make(map[string]struct{}),
		}
	}

	fs.initialized = true
	fs.alive.Store(true)

	fs.logger.Info("opened archive %s (%d entries)", fs.archivePath, len(fs.entries))

	return nil
}

func (fs *ZipFileSystem) Shutdown(ctx context.Context) error {
	unlock := fs.locker.Lock()
	defer unlock()

	fs.alive.Store(false)
	fs.initialized = false
	fs.entries = make(map[string]entry)

	if fs.reader == nil {
		return nil
	}

	err := fs.reader.Close()
	fs.reader = nil

	fs.logger.Info("closed archive %s", fs.archivePath)

	return err
}

func (fs *ZipFileSystem) IsInitialized() bool {
	unlock := fs.locker.Lock()
	defer unlock()

	return fs.initialized
}

func (fs *ZipFileSystem) BasePath() string { return fs.archivePath }

func (fs *ZipFileSystem) VirtualPath() string { return fs.alias }

func (fs *ZipFileSystem) GetFilesList() []vfs.FileInfo {
	unlock := fs.locker.Lock()
	defer unlock()

	out := make([]vfs.FileInfo, 0, len(fs.entries))
	for _, e := range fs.entries {
		out = append(out, e.info)
	}

	return out
}

func (fs *ZipFileSystem) IsReadOnly() bool { return true }

func (fs *ZipFileSystem) IsFileExists(relPath string) bool {
	unlock := fs.locker.Lock()
	defer unlock()

	_, ok := fs.entries[relPath]
	return ok
}

func (fs *ZipFileSystem) OpenFile(ctx context.Context, relPath string, mode vfs.FileMode) (vfs.IFile, bool) {
	unlock := fs.locker.Lock()
	e, ok := fs.entries[relPath]
	if !ok {
		unlock()
		return nil, false
	}

	handleID := uuid.NewString()
	e.openedHandles[handleID] = struct{}{}
	unlock()

	file := newZipFile(e.info, e.file, handleID, fs.alive)
	if !file.Open(mode) {
		unlock := fs.locker.Lock()
		delete(e.openedHandles, handleID)
		unlock()

		return nil, false
	}

	return file, true
}

func (fs *ZipFileSystem) CloseFile(ctx context.Context, file vfs.IFile) error {
	file.Close()

	zf, ok := file.(*ZipFile)
	if !ok {
		return nil
	}

	unlock := fs.locker.Lock()
	if e, exists := fs.entries[zf.FileInfo().FilePath()]; exists {
		delete(e.openedHandles, zf.handleID)
	}
	unlock()

	return nil
}

func (fs *ZipFileSystem) CreateFile(ctx context.Context, relPath string) (vfs.FileInfo, error) {
	return vfs.FileInfo{}, vfs.ErrReadOnly
}

func (fs *ZipFileSystem) RemoveFile(ctx context.Context, relPath string) error {
	return vfs.ErrReadOnly
}

func (fs *ZipFileSystem) CopyFile(ctx context.Context, srcRelPath, dstRelPath string, overwrite bool) (vfs.FileInfo, error) {
	return vfs.FileInfo{}, vfs.ErrReadOnly
}

func (fs *ZipFileSystem) RenameFile(ctx context.Context, srcRelPath, dstRelPath string) (vfs.FileInfo, error) {
	return vfs.FileInfo{}, vfs.ErrReadOnly
}

func (fs *ZipFileSystem) Capabilities() vfs.Capabilities {
	return vfs.NewCapabilities(vfs.CapabilityEnumerable, vfs.CapabilityReadOnly)
}
