package vfs

// IFile is the handle contract every backend's open files satisfy, per
// spec.md §4.2. All methods are safe to call after Close (they report
// the closed state rather than panicking), mirroring the teacher's
// VirtualFile contract but extended with Open/IsOpened/Size/Tell so a
// backend fully owns its handle's lifecycle.
type IFile interface {
	// Open validates mode and prepares the handle for I/O. Returns
	// false on an invalid mode, a write request against a read-only
	// backend, or a backend-specific failure.
	Open(mode FileMode) bool

	// Close releases the handle. Idempotent.
	Close()

	// IsOpened reports whether the handle is currently open.
	IsOpened() bool

	// Size returns the current byte length of the file; 0 when closed.
	Size() int64

	// Seek repositions the cursor and returns the new position,
	// clamped to [0, Size()]. Returns 0 when closed.
	Seek(offset int64, origin SeekOrigin) int64

	// Tell returns the current cursor position; 0 when closed.
	Tell() int64

	// Read copies up to len(buffer) bytes at the current cursor into
	// buffer, advancing it by the number of bytes read. Returns 0 if
	// the handle is not readable, is closed, or is at EOF.
	Read(buffer []byte) int

	// Write copies len(buffer) bytes from buffer to the current
	// cursor, advancing it and extending the file if needed. Returns 0
	// if the handle is not writable, is closed, or the backend is
	// read-only.
	Write(buffer []byte) int

	// FileInfo returns the path triple this handle was opened against.
	FileInfo() FileInfo
}
