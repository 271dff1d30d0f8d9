package vfs

import (
	"context"
	"fmt"
	"sort"

	"github.com/duskfs/vfsmux/log"
	"github.com/tidwall/btree"
)

// mountedBackend pairs a backend with the order it was mounted in, so
// overlay resolution can walk an alias's stack newest-first for reads
// and fall back to the oldest ("main") entry for writes, per spec.md
// §4.7.
type mountedBackend struct {
	fs  IFileSystem
	seq int
}

// VirtualFileSystem is the alias-table multiplexer: a map from
// normalized alias to an ordered stack of mounted backends, resolved
// by longest-prefix match against the alias, then overlaid
// newest-to-oldest. Grounded on the teacher's root VirtualFileSystem
// plus mount/backend's offset-addressed backend contract, merged into
// the single IFileSystem seam this module uses throughout.
type VirtualFileSystem struct {
	locker Locker
	logger *log.Logger

	backends map[string][]mountedBackend
	aliases  *btree.Map[string, struct{}]
	nextSeq  int
}

// NewVfs constructs an empty VirtualFileSystem.
func NewVfs(opts ...Option) *VirtualFileSystem {
	o := newDefaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.LogFile != "" && o.Logger != nil {
		o.Logger = log.NewLogger(o.Logger.Name, o.Logger.Level, o.LogFile, o.Logger.NoColor)
	}

	return &VirtualFileSystem{
		locker:   o.Locker,
		logger:   o.Logger,
		backends: make(map[string][]mountedBackend),
		aliases:  btree.NewMap[string, struct{}](0),
	}
}

// loggable is implemented by every backend's SetLogger method; checked
// with a type assertion so AddFileSystem can hand each mounted backend
// its own alias-tagged child logger without widening IFileSystem.
type loggable interface {
	SetLogger(logger *log.Logger)
}

// AddFileSystem mounts an already-constructed backend under alias,
// initializing it if it isn't already. Multiple backends may share an
// alias; later mounts overlay earlier ones for reads.
func (v *VirtualFileSystem) AddFileSystem(ctx context.Context, alias string, fs IFileSystem) error {
	alias = normalizeAlias(alias)

	if lg, ok := fs.(loggable); ok {
		lg.SetLogger(v.logger.Named(alias))
	}

	if !fs.IsInitialized() {
		if err := fs.Initialize(ctx); err != nil {
			v.logger.Error("failed to initialize backend for %s: %v", alias, err)
			return fmt.Errorf("vfsmux: initializing backend for %s: %w", alias, err)
		}
	}

	unlock := v.locker.Lock()
	defer unlock()

	v.nextSeq++
	v.backends[alias] = append(v.backends[alias], mountedBackend{fs: fs, seq: v.nextSeq})
	v.aliases.Set(alias, struct{}{})

	v.logger.Info("mounted backend at %s (depth %d)", alias, len(v.backends[alias]))

	return nil
}

// RemoveFileSystem unmounts a specific backend previously added under
// alias, shutting it down. Returns ErrNotMounted if fs isn't mounted
// there.
func (v *VirtualFileSystem) RemoveFileSystem(ctx context.Context, alias string, fs IFileSystem) error {
	alias = normalizeAlias(alias)

	unlock := v.locker.Lock()
	defer unlock()

	stack, ok := v.backends[alias]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotMounted, alias)
	}

	idx := -1
	for i, mb := range stack {
		if mb.fs == fs {
			idx = i
			break
		}
	}

	if idx == -1 {
		return fmt.Errorf("%w: backend not found at %s", ErrNotMounted, alias)
	}

	stack = append(stack[:idx], stack[idx+1:]...)
	if len(stack) == 0 {
		delete(v.backends, alias)
		v.aliases.Delete(alias)
	} else {
		v.backends[alias] = stack
	}

	v.logger.Info("unmounted backend at %s", alias)

	return fs.Shutdown(ctx)
}

// UnregisterAlias unmounts every backend mounted at alias, shutting
// each down in newest-to-oldest order. Returns ErrNotMounted if alias
// has no mounts.
func (v *VirtualFileSystem) UnregisterAlias(ctx context.Context, alias string) error {
	alias = normalizeAlias(alias)

	unlock := v.locker.Lock()

	stack, ok := v.backends[alias]
	if !ok {
		unlock()
		return fmt.Errorf("%w: %s", ErrNotMounted, alias)
	}

	delete(v.backends, alias)
	v.aliases.Delete(alias)
	unlock()

	var firstErr error
	for i := len(stack) - 1; i >= 0; i-- {
		if err := stack[i].fs.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	v.logger.Info("unregistered alias %s", alias)

	return firstErr
}

// resolveAlias finds the longest mounted alias prefixing virtualPath
// and returns its backend stack newest-first, plus the relative path
// within that alias. Must be called with the lock held.
func (v *VirtualFileSystem) resolveAlias(virtualPath string) (alias, rel string, stack []mountedBackend, ok bool) {
	if !hasLeadingSlash(virtualPath) {
		virtualPath = "/" + virtualPath
	}

	best := ""
	v.aliases.Scan(func(candidate string, _ struct{}) bool {
		if r, matches := splitAliasPrefix(virtualPath, candidate); matches {
			if len(candidate) > len(best) {
				best = candidate
				rel = r
			}
		}

		return true
	})

	if best == "" {
		return "", "", nil, false
	}

	src := v.backends[best]
	stack = make([]mountedBackend, len(src))

	for i, mb := range src {
		stack[len(src)-1-i] = mb
	}

	return best, rel, stack, true
}

func hasLeadingSlash(s string) bool {
	return len(s) > 0 && s[0] == '/'
}

// IsFileExists reports whether any backend mounted at virtualPath's
// alias holds the file, searching newest-to-oldest.
func (v *VirtualFileSystem) IsFileExists(virtualPath string) bool {
	unlock := v.locker.Lock()
	defer unlock()

	_, rel, stack, ok := v.resolveAlias(virtualPath)
	if !ok {
		return false
	}

	for _, mb := range stack {
		if mb.fs.IsFileExists(rel) {
			return true
		}
	}

	return false
}

// OpenFile resolves virtualPath against the mounted aliases and opens
// a handle. Reads are satisfied by the newest backend in the overlay
// stack that holds the file; writes that would create a new file fall
// back to the oldest ("main") backend in the stack, per spec.md §4.7.
func (v *VirtualFileSystem) OpenFile(ctx context.Context, virtualPath string, mode FileMode) (IFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := v.locker.Lock()
	_, rel, stack, ok := v.resolveAlias(virtualPath)
	unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMounted, virtualPath)
	}

	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	for _, mb := range stack {
		if mb.fs.IsFileExists(rel) {
			file, opened := mb.fs.OpenFile(ctx, rel, mode)
			if !opened {
				v.logger.Warn("open failed for %s", virtualPath)
				return nil, fmt.Errorf("%w: %s", ErrPermission, virtualPath)
			}

			return file, nil
		}
	}

	if !mode.CanWrite() {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, virtualPath)
	}

	main := stack[len(stack)-1]
	if main.fs.IsReadOnly() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, virtualPath)
	}

	if _, err := main.fs.CreateFile(ctx, rel); err != nil {
		return nil, err
	}

	file, opened := main.fs.OpenFile(ctx, rel, mode)
	if !opened {
		v.logger.Warn("open failed for %s", virtualPath)
		return nil, fmt.Errorf("%w: %s", ErrPermission, virtualPath)
	}

	return file, nil
}

// ListAllFiles returns every file visible across every mounted alias,
// sorted by virtual path, with overlay shadowing resolved (the
// newest-mounted backend wins when two backends at the same alias
// both hold the same relative path).
func (v *VirtualFileSystem) ListAllFiles() []FileInfo {
	unlock := v.locker.Lock()
	defer unlock()

	seen := make(map[string]FileInfo)

	v.aliases.Scan(func(alias string, _ struct{}) bool {
		stack := v.backends[alias]

		for i := len(stack) - 1; i >= 0; i-- {
			for _, info := range stack[i].fs.GetFilesList() {
				if _, dup := seen[info.VirtualPath()]; !dup {
					seen[info.VirtualPath()] = info
				}
			}
		}

		return true
	})

	out := make([]FileInfo, 0, len(seen))
	for _, info := range seen {
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })

	return out
}

// Shutdown unmounts and shuts down every backend across every alias.
func (v *VirtualFileSystem) Shutdown(ctx context.Context) error {
	unlock := v.locker.Lock()

	all := make(map[string][]mountedBackend, len(v.backends))
	for alias, stack := range v.backends {
		all[alias] = stack
	}

	v.backends = make(map[string][]mountedBackend)
	v.aliases = btree.NewMap[string, struct{}](0)
	unlock()

	var firstErr error
	for alias, stack := range all {
		for i := len(stack) - 1; i >= 0; i-- {
			if err := stack[i].fs.Shutdown(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}

		v.logger.Info("shut down alias %s", alias)
	}

	return firstErr
}
