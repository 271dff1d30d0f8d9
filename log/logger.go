package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a small leveled logger with optional rotated file output,
// used by the VFS core and every backend to report mount lifecycle
// and open/close events. It is a library-internal logger, not an
// application one: unlike the teacher's, it never calls os.Exit.
type Logger struct {
	mu     sync.Mutex
	writer io.Writer

	Name  string
	Level LogLevel

	TimeFormat string
	File       string
	NoColor    bool
	Rotation   Rotation
}

// Rotation configures lumberjack-backed log file rotation.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func defaultRotation() Rotation {
	return Rotation{MaxSizeMB: 128, MaxBackups: 5, MaxAgeDays: 16}
}

// NewLogger builds a Logger writing to stdout, and additionally to a
// rotated file when file is non-empty.
func NewLogger(name string, level LogLevel, file string, noColor bool) *Logger {
	l := &Logger{
		Name:       name,
		Level:      level,
		File:       file,
		NoColor:    noColor,
		TimeFormat: "2006-01-02 15:04:05",
		Rotation:   defaultRotation(),
	}

	l.setupWriter()

	return l
}

// NewNop returns a Logger that discards everything, for callers who
// want the VFS's diagnostic calls to cost nothing.
func NewNop() *Logger {
	return &Logger{writer: io.Discard, Level: Error + 1}
}

func (l *Logger) setupWriter() {
	if l.File == "" {
		l.writer = os.Stdout
		return
	}

	l.writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   l.File,
		MaxSize:    l.Rotation.MaxSizeMB,
		MaxBackups: l.Rotation.MaxBackups,
		MaxAge:     l.Rotation.MaxAgeDays,
		Compress:   l.Rotation.Compress,
	})
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if level < l.Level || l.writer == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format(l.TimeFormat)
	formatted := fmt.Sprintf(msg, args...)

	prefix := fmt.Sprintf("[%s] %-5s", timestamp, level)
	if l.Name != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, l.Name)
	}

	if l.NoColor {
		fmt.Fprintf(l.writer, "%s %s\n", prefix, formatted)
		return
	}

	fmt.Fprintf(l.writer, "%s%s %s\033[0m\n", level.color(), prefix, formatted)
}

func (l *Logger) Debug(msg string, args ...any) { l.log(Debug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(Info, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(Warn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(Error, msg, args...) }

// Named returns a child logger sharing this one's writer and level,
// prefixed with an additional name segment — used by the VFS core to
// hand each mounted backend its own tagged logger.
func (l *Logger) Named(name string) *Logger {
	name = l.Name + "/" + name
	if l.Name == "" {
		name = name[1:]
	}

	return &Logger{
		writer:     l.writer,
		Name:       name,
		Level:      l.Level,
		TimeFormat: l.TimeFormat,
		File:       l.File,
		NoColor:    l.NoColor,
		Rotation:   l.Rotation,
	}
}
