package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Minimal leveled logger shared by the service.
// - package-level Debugf/Infof/Warnf/Errorf/Fatalf and Init(level)
// - named instances (New) for components, printing a context value after the message

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	logger *log.Logger = log.New(os.Stdout, "", 0)
	level  Level       = LevelInfo
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	s := strings.ToLower(strings.TrimSpace(l))
	switch s {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

func header(lvl string) string {
	return fmt.Sprintf("%s [%s] ", time.Now().Format(time.RFC3339), strings.ToUpper(lvl))
}

func namedHeader(lvl, name string) string {
	return fmt.Sprintf("%s [%s] [%s] ", time.Now().Format(time.RFC3339), strings.ToUpper(lvl), name)
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func Debugf(format string, v ...interface{}) {
	if !shouldLog(LevelDebug) {
		return
	}
	logger.Printf(header("debug")+format, v...)
}

func Infof(format string, v ...interface{}) {
	if !shouldLog(LevelInfo) {
		return
	}
	logger.Printf(header("info")+format, v...)
}

func Warnf(format string, v ...interface{}) {
	if !shouldLog(LevelWarn) {
		return
	}
	logger.Printf(header("warn")+format, v...)
}

func Errorf(format string, v ...interface{}) {
	if !shouldLog(LevelError) {
		return
	}
	logger.Printf(header("error")+format, v...)
}

func Fatalf(format string, v ...interface{}) {
	logger.Printf(header("fatal")+format, v...)
	os.Exit(1)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	if !shouldLog(LevelInfo) {
		return
	}
	logger.Print(header("info") + fmt.Sprintln(v...))
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}

// Logger is a named component logger, e.g. New("UsersRepository").
// It honours the global level set by Init.
type Logger struct {
	name string
}

func New(name string) *Logger { return &Logger{name: name} }

func (l *Logger) Name() string { return l.name }

func (l *Logger) Debug(msg string, context ...any) { l.print(LevelDebug, "debug", msg, context) }
func (l *Logger) Info(msg string, context ...any)  { l.print(LevelInfo, "info", msg, context) }
func (l *Logger) Warn(msg string, context ...any)  { l.print(LevelWarn, "warn", msg, context) }
func (l *Logger) Error(msg string, context ...any) { l.print(LevelError, "error", msg, context) }

func (l *Logger) print(lv Level, lvl, msg string, context []any) {
	if !shouldLog(lv) {
		return
	}
	var b strings.Builder
	b.WriteString(namedHeader(lvl, l.name))
	b.WriteString(msg)
	for _, c := range context {
		fmt.Fprintf(&b, " %v", c)
	}
	logger.Print(b.String())
}
