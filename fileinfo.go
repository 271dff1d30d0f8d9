package vfs

// FileInfo is an immutable path triple describing where a file lives
// both in the virtual namespace and in a backend's own storage.
//
// Equality and ordering are defined by the virtual path alone (see
// Equal and Less), matching spec.md §3.
type FileInfo struct {
	aliasPath string // mount prefix, always "/"-wrapped
	basePath  string // backend-local base; empty for memory/zip
	filePath  string // path relative to the mount root

	virtualPath string
	nativePath  string

	filename     string
	baseFilename string
	extension    string
}

// NewFileInfo builds a FileInfo from the alias a backend is mounted
// at, the backend's own base path (empty for memory/zip), and a raw
// file name as produced by that backend. If fileName already carries
// basePath as a prefix it is stripped, per spec.md §4.1.
func NewFileInfo(aliasPath, basePath, fileName string) FileInfo {
	filePath := stripBasePrefix(basePath, fileName)
	filename, baseFilename, extension := splitNameExt(filePath)

	return FileInfo{
		aliasPath: aliasPath,
		basePath:  basePath,
		filePath:  filePath,

		virtualPath: joinPath(aliasPath, filePath),
		nativePath:  joinPath(basePath, filePath),

		filename:     filename,
		baseFilename: baseFilename,
		extension:    extension,
	}
}

func (fi FileInfo) AliasPath() string    { return fi.aliasPath }
func (fi FileInfo) BasePath() string     { return fi.basePath }
func (fi FileInfo) FilePath() string     { return fi.filePath }
func (fi FileInfo) VirtualPath() string  { return fi.virtualPath }
func (fi FileInfo) NativePath() string   { return fi.nativePath }
func (fi FileInfo) Filename() string     { return fi.filename }
func (fi FileInfo) BaseFilename() string { return fi.baseFilename }
func (fi FileInfo) Extension() string    { return fi.extension }

// Equal reports whether two FileInfo values name the same virtual path.
func (fi FileInfo) Equal(other FileInfo) bool {
	return fi.virtualPath == other.virtualPath
}

// Less orders FileInfo values lexicographically by virtual path, used
// when ListAllFiles sorts its result set.
func (fi FileInfo) Less(other FileInfo) bool {
	return fi.virtualPath < other.virtualPath
}
