// Package logging is a small leveled wrapper around the standard logger.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is a log severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var current int32 = int32(LevelInfo)

var base atomic.Pointer[log.Logger]

func init() {
	base.Store(log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds))
}

// SetLevel sets the global level by name. It returns false for unknown names.
func SetLevel(name string) bool {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return false
	}
	atomic.StoreInt32(&current, int32(l))
	return true
}

// GetLevel returns the global level.
func GetLevel() Level { return Level(atomic.LoadInt32(&current)) }

// SetOutput replaces the destination logger, used by tests.
func SetOutput(l *log.Logger) (restore func()) {
	saved := base.Swap(l)
	return func() { base.Store(saved) }
}

func logf(l Level, format string, args ...any) {
	if GetLevel() > l {
		return
	}
	prefix := "INFO"
	switch l {
	case LevelDebug:
		prefix = "DEBUG"
	case LevelWarn:
		prefix = "WARN"
	case LevelError:
		prefix = "ERROR"
	}
	// raw log lines may contain '%', only format when asked to
	out := base.Load()
	if len(args) == 0 {
		out.Printf("[%s] %s", prefix, format)
		return
	}
	out.Printf("[%s] %s", prefix, fmt.Sprintf(format, args...))
}

func Debugf(format string, a ...any) { logf(LevelDebug, format, a...) }
func Infof(format string, a ...any)  { logf(LevelInfo, format, a...) }
func Warnf(format string, a ...any)  { logf(LevelWarn, format, a...) }
func Errorf(format string, a ...any) { logf(LevelError, format, a...) }
