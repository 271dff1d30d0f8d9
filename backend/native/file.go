package native

import (
	"io"
	"os"
	"sync/atomic"

	vfs "github.com/duskfs/vfsmux"
)

// NativeFile wraps a real *os.File. Grounded on the teacher's
// backend/local storage.go, which opens/seeks/closes a fresh *os.File
// per call; here the handle owns one *os.File for its whole lifetime,
// per spec.md §4.4's stdio-style contract. handleID tags the handle in
// its fileEntry's openedHandles registry. alive is the owning
// NativeFileSystem's liveness flag: once Shutdown flips it, the
// handle reports closed even though it still owns a live *os.File
// until Close is called on it directly.
type NativeFile struct {
	locker   vfs.Locker
	info     vfs.FileInfo
	path     string
	mode     vfs.FileMode
	file     *os.File
	handleID string
	alive    *atomic.Bool
}

func newNativeFile(info vfs.FileInfo, path string, handleID string, alive *atomic.Bool) *NativeFile {
	return &NativeFile{info: info, path: path, handleID: handleID, alive: alive, locker: &vfs.MutexPolicy{}}
}

// backendAlive reports whether the owning filesystem is still
// initialized; callers already hold f.locker.
func (f *NativeFile) backendAlive() bool {
	return f.alive == nil || f.alive.Load()
}

// nativeFlags maps a vfs.FileMode to the os.OpenFile flag combination
// spec.md §4.4 specifies.
func nativeFlags(mode vfs.FileMode) int {
	var flags int

	switch {
	case mode.CanRead() && mode.CanWrite():
		flags = os.O_RDWR
	case mode.CanWrite():
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}

	if mode.HasAppend() {
		flags |= os.O_APPEND
	}

	if mode.HasTruncate() {
		flags |= os.O_TRUNC
	}

	return flags
}

func (f *NativeFile) Open(mode vfs.FileMode) bool {
	if !mode.Valid() {
		return false
	}

	file, err := os.OpenFile(f.path, nativeFlags(mode), 0644)
	if err != nil {
		return false
	}

	unlock := f.locker.Lock()
	defer unlock()

	f.mode = mode
	f.file = file

	if mode.HasAppend() {
		f.file.Seek(0, io.SeekEnd)
	}

	return true
}

func (f *NativeFile) Close() {
	unlock := f.locker.Lock()
	defer unlock()

	if f.file == nil {
		return
	}

	f.file.Close()
	f.file = nil
}

func (f *NativeFile) IsOpened() bool {
	unlock := f.locker.Lock()
	defer unlock()

	return f.file != nil && f.backendAlive()
}

// Size stats the underlying file rather than trusting the stream
// position, so it stays correct even immediately after Open.
func (f *NativeFile) Size() int64 {
	unlock := f.locker.Lock()
	defer unlock()

	if !f.backendAlive() {
		return 0
	}

	return f.sizeLocked()
}

func (f *NativeFile) sizeLocked() int64 {
	if f.file == nil {
		return 0
	}

	stat, err := f.file.Stat()
	if err != nil {
		return 0
	}

	return stat.Size()
}

func (f *NativeFile) Seek(offset int64, origin vfs.SeekOrigin) int64 {
	unlock := f.locker.Lock()
	defer unlock()

	if f.file == nil || !f.backendAlive() {
		return 0
	}

	pos, _ := f.file.Seek(0, io.SeekCurrent)
	target := vfs.ClampSeek(origin, offset, pos, f.sizeLocked())

	newPos, err := f.file.Seek(target, io.SeekStart)
	if err != nil {
		return pos
	}

	return newPos
}

func (f *NativeFile) Tell() int64 {
	unlock := f.locker.Lock()
	defer unlock()

	if f.file == nil || !f.backendAlive() {
		return 0
	}

	pos, _ := f.file.Seek(0, io.SeekCurrent)
	return pos
}

func (f *NativeFile) Read(buffer []byte) int {
	unlock := f.locker.Lock()
	defer unlock()

	if f.file == nil || !f.backendAlive() || !f.mode.CanRead() {
		return 0
	}

	n, _ := f.file.Read(buffer)
	return n
}

func (f *NativeFile) Write(buffer []byte) int {
	unlock := f.locker.Lock()
	defer unlock()

	if f.file == nil || !f.backendAlive() || !f.mode.CanWrite() {
		return 0
	}

	n, _ := f.file.Write(buffer)
	return n
}

func (f *NativeFile) FileInfo() vfs.FileInfo {
	return f.info
}
