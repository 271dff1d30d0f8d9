package memory

import "sync/atomic"

// memorySnapshot is an immutable byte buffer. MemoryObject never
// mutates one in place; it publishes a new snapshot and lets the old
// one be garbage collected once no handle still points at it.
type memorySnapshot struct {
	data []byte
}

// MemoryObject is the copy-on-write cell backing a single in-memory
// file's bytes, shared by every open handle against it. Grounded on
// the teacher's backend/memory storage.go WriteObject/TruncateObject
// pair, restructured per spec.md §4.3 around an atomic snapshot
// pointer instead of a mutex-guarded []byte, so concurrent readers
// never block on a writer that is only extending the buffer.
type MemoryObject struct {
	snapshot atomic.Pointer[memorySnapshot]
}

// NewMemoryObject returns an empty MemoryObject.
func NewMemoryObject() *MemoryObject {
	o := &MemoryObject{}
	o.snapshot.Store(&memorySnapshot{data: []byte{}})

	return o
}

// GetData returns the current snapshot's bytes. The slice must be
// treated as read-only by the caller; use GetWritableData to mutate.
func (o *MemoryObject) GetData() []byte {
	return o.snapshot.Load().data
}

// Size returns the current snapshot's length.
func (o *MemoryObject) Size() int64 {
	return int64(len(o.snapshot.Load().data))
}

// GetWritableData returns a buffer of exactly size bytes, seeded from
// the current snapshot's contents, and publishes it as the new
// snapshot. Every writer gets its own copy to mutate — any handle
// still holding the previous snapshot via GetData keeps seeing the old
// bytes, implementing the copy-on-write rule from spec.md §4.3.
func (o *MemoryObject) GetWritableData(size int64) []byte {
	current := o.snapshot.Load()

	buf := make([]byte, size)
	copy(buf, current.data)

	next := &memorySnapshot{data: buf}
	o.snapshot.Store(next)

	return buf
}

// Reset truncates the object back to zero bytes, publishing a fresh
// empty snapshot rather than mutating the old one.
func (o *MemoryObject) Reset() {
	o.snapshot.Store(&memorySnapshot{data: []byte{}})
}

// Clone returns a new MemoryObject sharing no storage with o, used by
// MemoryFileSystem.CopyFile so the copy and the original diverge
// independently under later writes.
func (o *MemoryObject) Clone() *MemoryObject {
	current := o.snapshot.Load()
	buf := make([]byte, len(current.data))
	copy(buf, current.data)

	clone := &MemoryObject{}
	clone.snapshot.Store(&memorySnapshot{data: buf})

	return clone
}
