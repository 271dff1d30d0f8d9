package memory

import (
	"sync/atomic"

	vfs "github.com/duskfs/vfsmux"
)

// MemoryFile is an open handle onto a MemoryObject. Several handles
// may be open against the same object at once; writes become visible
// to new reads immediately since they all share the same atomic
// snapshot pointer. handleID tags the handle in its FileEntry's
// openedHandles registry so RemoveFile can drop bookkeeping for it
// without needing a live reference back. alive is the owning
// MemoryFileSystem's liveness flag: once Shutdown flips it, the
// handle reports closed and every op returns its zero value even
// though it still holds its own *MemoryObject pointer.
type MemoryFile struct {
	locker   vfs.Locker
	info     vfs.FileInfo
	object   *MemoryObject
	mode     vfs.FileMode
	pos      int64
	open     bool
	handleID string
	alive    *atomic.Bool
}

func newMemoryFile(info vfs.FileInfo, object *MemoryObject, handleID string, alive *atomic.Bool) *MemoryFile {
	return &MemoryFile{info: info, object: object, handleID: handleID, alive: alive, locker: &vfs.MutexPolicy{}}
}

// backendAlive reports whether the owning filesystem is still
// initialized; callers already hold f.locker.
func (f *MemoryFile) backendAlive() bool {
	return f.alive == nil || f.alive.Load()
}

func (f *MemoryFile) Open(mode vfs.FileMode) bool {
	if !mode.Valid() {
		return false
	}

	unlock := f.locker.Lock()
	defer unlock()

	f.mode = mode
	f.pos = 0
	f.open = true

	if mode.HasTruncate() {
		f.object.Reset()
	}

	if mode.HasAppend() {
		f.pos = f.object.Size()
	}

	return true
}

func (f *MemoryFile) Close() {
	unlock := f.locker.Lock()
	defer unlock()

	f.open = false
}

func (f *MemoryFile) IsOpened() bool {
	unlock := f.locker.Lock()
	defer unlock()

	return f.open && f.backendAlive()
}

func (f *MemoryFile) Size() int64 {
	unlock := f.locker.Lock()
	defer unlock()

	if !f.open || !f.backendAlive() {
		return 0
	}

	return f.object.Size()
}

func (f *MemoryFile) Seek(offset int64, origin vfs.SeekOrigin) int64 {
	unlock := f.locker.Lock()
	defer unlock()

	if !f.open || !f.backendAlive() {
		return 0
	}

	f.pos = vfs.ClampSeek(origin, offset, f.pos, f.object.Size())
	return f.pos
}

func (f *MemoryFile) Tell() int64 {
	unlock := f.locker.Lock()
	defer unlock()

	if !f.open || !f.backendAlive() {
		return 0
	}

	return f.pos
}

func (f *MemoryFile) Read(buffer []byte) int {
	unlock := f.locker.Lock()
	defer unlock()

	if !f.open || !f.backendAlive() || !f.mode.CanRead() {
		return 0
	}

	data := f.object.GetData()
	if f.pos >= int64(len(data)) {
		return 0
	}

	n := copy(buffer, data[f.pos:])
	f.pos += int64(n)

	return n
}

func (f *MemoryFile) Write(buffer []byte) int {
	unlock := f.locker.Lock()
	defer unlock()

	if !f.open || !f.backendAlive() || !f.mode.CanWrite() {
		return 0
	}

	end := f.pos + int64(len(buffer))
	size := f.object.Size()
	if end > size {
		size = end
	}

	data := f.object.GetWritableData(size)
	n := copy(data[f.pos:end], buffer)
	f.pos += int64(n)

	return n
}

func (f *MemoryFile) FileInfo() vfs.FileInfo {
	return f.info
}
