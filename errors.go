package vfs

import "errors"

// Standard errors returned by backends and by the VirtualFileSystem core.
var (
	// Alias / mount table errors
	ErrNotMounted     = errors.New("vfsmux: alias not mounted")
	ErrAlreadyMounted = errors.New("vfsmux: backend already mounted at alias")

	// Path resolution errors
	ErrNotExist     = errors.New("vfsmux: file does not exist")
	ErrExist        = errors.New("vfsmux: file already exists")
	ErrIsDirectory  = errors.New("vfsmux: is a directory")
	ErrNotDirectory = errors.New("vfsmux: not a directory")
	ErrPermission   = errors.New("vfsmux: permission denied")
	ErrReadOnly     = errors.New("vfsmux: read-only filesystem")

	// Handle / mode errors
	ErrClosed         = errors.New("vfsmux: file already closed")
	ErrInvalidMode    = errors.New("vfsmux: invalid file mode")
	ErrInvalid        = errors.New("vfsmux: invalid argument")
	ErrNotInitialized = errors.New("vfsmux: backend not initialized")
)
