package vfs

import "strings"

// normalizeAlias trims whitespace and forces the alias into the
// canonical "/foo/bar/" shape: non-empty, leading slash, single
// trailing slash, no duplicate separators.
func normalizeAlias(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return "/"
	}

	if !strings.HasPrefix(alias, "/") {
		alias = "/" + alias
	}

	for strings.Contains(alias, "//") {
		alias = strings.ReplaceAll(alias, "//", "/")
	}

	if !strings.HasSuffix(alias, "/") {
		alias += "/"
	}

	return alias
}

// splitAliasPrefix reports whether virtualPath sits under alias and, if
// so, returns the portion of virtualPath relative to alias.
func splitAliasPrefix(virtualPath, alias string) (rel string, ok bool) {
	if !strings.HasPrefix(virtualPath, alias) {
		return "", false
	}

	return strings.TrimPrefix(virtualPath, alias), true
}

// joinPath concatenates a base and a relative part using POSIX-style
// separators, without introducing a duplicate slash at the seam.
func joinPath(base, rel string) string {
	switch {
	case base == "":
		return rel
	case rel == "":
		return base
	case strings.HasSuffix(base, "/") && strings.HasPrefix(rel, "/"):
		return base + rel[1:]
	case !strings.HasSuffix(base, "/") && !strings.HasPrefix(rel, "/"):
		return base + "/" + rel
	default:
		return base + rel
	}
}

// stripBasePrefix removes basePath from fileName when fileName begins
// with it, then trims any leading separators from the remainder. This
// mirrors spec.md §4.1's FileInfo construction rule.
func stripBasePrefix(basePath, fileName string) string {
	if basePath != "" && strings.HasPrefix(fileName, basePath) {
		fileName = strings.TrimPrefix(fileName, basePath)
	}

	return strings.TrimLeft(fileName, "/")
}

// splitNameExt locates the last path component and its extension,
// following the conventional "last '/'" / "last '.'" parse spec.md
// §4.1 specifies for filename/baseFilename/extension.
func splitNameExt(filePath string) (filename, baseFilename, extension string) {
	filename = filePath
	if idx := strings.LastIndexByte(filePath, '/'); idx >= 0 {
		filename = filePath[idx+1:]
	}

	if idx := strings.LastIndexByte(filename, '.'); idx > 0 {
		baseFilename = filename[:idx]
		extension = filename[idx+1:]
	} else {
		baseFilename = filename
	}

	return filename, baseFilename, extension
}
