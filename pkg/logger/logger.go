// Package logger fans log calls out to the backends registered with Init.
// Every call site uses a bracketed component prefix, e.g. "[Queue] ...",
// followed by key/value pairs.
package logger

import "sync/atomic"

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

var backends atomic.Pointer[[]LoggerInstance]

// Init replaces the logging backends. It is safe to call while other
// goroutines log; calls made before the first Init are dropped.
func Init(instances ...LoggerInstance) {
	backends.Store(&instances)
}

func each(fn func(LoggerInstance)) {
	list := backends.Load()
	if list == nil {
		return
	}
	for _, instance := range *list {
		fn(instance)
	}
}

func Log(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Log(message, keyvals...) })
}

func Debug(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Debug(message, keyvals...) })
}

func Info(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Info(message, keyvals...) })
}

func Warn(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Warn(message, keyvals...) })
}

func Error(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Error(message, keyvals...) })
}

// Fatal logs to every backend. The console backend exits the process
// after writing.
func Fatal(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Fatal(message, keyvals...) })
}
