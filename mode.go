package vfs

// FileMode is a bitset of the access flags a file can be opened with.
// It follows spec.md §4.2's lattice: at least one of Read/Write must
// be set, Append implies Write, and Truncate implies Write.
type FileMode int

const (
	Read FileMode = 1 << iota
	Write
	Append
	Truncate

	ReadWrite = Read | Write
)

// Valid reports whether m is a legal combination per spec.md §4.2.
func (m FileMode) Valid() bool {
	if m&(Read|Write) == 0 {
		return false
	}

	if m&Append != 0 && m&Write == 0 {
		return false
	}

	if m&Truncate != 0 && m&Write == 0 {
		return false
	}

	return true
}

func (m FileMode) CanRead() bool  { return m&Read != 0 }
func (m FileMode) CanWrite() bool { return m&Write != 0 }
func (m FileMode) HasAppend() bool {
	return m&Append != 0
}
func (m FileMode) HasTruncate() bool {
	return m&Truncate != 0
}

// IsReadOnly reports whether m carries no write intent. The handle
// types (MemoryFile, NativeFile, ZipFile) do not call it and expose no
// IsReadOnly method of their own; their Write checks CanWrite on the
// mode they were opened with.
func (m FileMode) IsReadOnly() bool {
	return !m.CanWrite()
}

// SeekOrigin selects the reference point for Seek, named per spec.md
// §4.2's vocabulary. Unlike io.Seeker, a SeekEnd offset counts backward
// from the end: Seek(5, SeekEnd) lands 5 bytes before the end.
type SeekOrigin int

const (
	SeekBegin SeekOrigin = iota
	SeekCurrent
	SeekEnd
)

// ClampSeek implements spec.md §4.2's seek-clamp rule: Begin is
// absolute, End is size-relative, Cur is offset-relative, and the
// result is always clamped to [0, size]. Exported so every backend
// package computes Seek the same way.
func ClampSeek(origin SeekOrigin, offset, pos, size int64) int64 {
	var target int64

	switch origin {
	case SeekBegin:
		target = offset
	case SeekEnd:
		target = size - offset
	case SeekCurrent:
		target = pos + offset
	}

	if target < 0 {
		return 0
	}
	if target > size {
		return size
	}

	return target
}
