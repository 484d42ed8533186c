package utilities

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

const logFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile

var (
	InfoLogger  = log.New(os.Stdout, "\033[32m[INFO]\033[0m ", logFlags)
	WarnLogger  = log.New(os.Stdout, "\033[33m[WARN]\033[0m ", logFlags)
	ErrorLogger = log.New(os.Stderr, "\033[31m[ERROR]\033[0m ", logFlags)
	DebugLogger = log.New(io.Discard, "\033[36m[DEBUG]\033[0m ", logFlags)
)

// Level orders the loggers; messages below the configured level are discarded.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps debug|info|warn|error to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// InitLogger points every logger at stdout/stderr, muting those below level.
func InitLogger(level Level) {
	InitLoggerWithWriters(level, os.Stdout, os.Stderr)
}

// InitLoggerWithWriters is InitLogger with explicit destinations.
func InitLoggerWithWriters(level Level, out, errOut io.Writer) {
	log.SetFlags(logFlags)

	pick := func(l Level, w io.Writer) io.Writer {
		if l < level {
			return io.Discard
		}
		return w
	}
	DebugLogger.SetOutput(pick(LevelDebug, out))
	InfoLogger.SetOutput(pick(LevelInfo, out))
	WarnLogger.SetOutput(pick(LevelWarn, out))
	ErrorLogger.SetOutput(pick(LevelError, errOut))
}

// LogRequest records one served HTTP request.
func LogRequest(method, path, remoteAddr string, status int, duration time.Duration) {
	InfoLogger.Printf("%s %s %s %d %v", method, path, remoteAddr, status, duration)
}

// LogError records err with a short description of what was being done.
func LogError(err error, context string) {
	ErrorLogger.Printf("%s: %v", context, err)
}

func LogWarn(format string, v ...interface{}) {
	WarnLogger.Printf(format, v...)
}

func LogDebug(format string, v ...interface{}) {
	DebugLogger.Printf(format, v...)
}

func LogInfo(format string, v ...interface{}) {
	InfoLogger.Printf(format, v...)
}
