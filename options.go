package vfs

import "github.com/duskfs/vfsmux/log"

// Options configures a VirtualFileSystem at construction time.
type Options struct {
	Logger  *log.Logger
	Locker  Locker
	LogFile string
}

// Option is a functional option for NewVfs, following the teacher's
// options.go pattern.
type Option func(*Options)

func newDefaultOptions() *Options {
	return &Options{
		Logger: log.NewLogger("vfsmux", log.Info, "", false),
		Locker: &MutexPolicy{},
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithLogLevel sets the minimum level the default logger emits.
func WithLogLevel(level log.LogLevel) Option {
	return func(o *Options) {
		if o.Logger != nil {
			o.Logger.Level = level
		}
	}
}

// WithLogFile enables rotated file logging at the given path, in
// addition to terminal output.
func WithLogFile(path string) Option {
	return func(o *Options) {
		o.LogFile = path
		if o.Logger != nil {
			o.Logger.File = path
		}
	}
}

// WithLocker overrides the default per-instance Locker, the seam that
// lets a caller opt into NoopPolicy for a single-threaded build.
func WithLocker(locker Locker) Option {
	return func(o *Options) {
		o.Locker = locker
	}
}
