package log

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
)

// Logger writes structured entries asynchronously to its transporters.
// Loggers derived with With share the queue and the level of their parent.
type Logger struct {
	level  *atomic.Int32
	queue  *queue
	fields Fields
}

// New creates a logger emitting entries at level and above.
func New(level Level, transporters ...Transporter) *Logger {
	l := &Logger{
		level:  new(atomic.Int32),
		queue:  newQueue(DefaultQueueSize, transporters...),
		fields: Fields{},
	}
	l.level.Store(int32(level))
	return l
}

// SetLevel changes the minimum level of l and of every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// With returns a child logger that adds the pairs to every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{
		level:  l.level,
		queue:  l.queue,
		fields: l.fields.clone().add(keysAndValues...),
	}
}

// Close flushes pending entries and closes the transporters.
func (l *Logger) Close() {
	l.queue.close()
}

// callerDepth skips caller, log and the exported level method.
const callerDepth = 3

func (l *Logger) log(ctx context.Context, level Level, msg string, keysAndValues []any) {
	if !l.Level().Enables(level) {
		return
	}

	entry := NewEntry(level, msg)
	entry.Caller = caller(callerDepth)
	entry.Fields.merge(l.fields)
	if ctx != nil {
		entry.RequestID = RequestIDFromContext(ctx)
		entry.Fields.merge(FieldsFromContext(ctx))
	}
	entry.Fields.add(keysAndValues...)

	l.queue.push(*entry)
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func (l *Logger) Trace(msg string, kv ...any) { l.log(nil, Trace, msg, kv) }
func (l *Logger) Debug(msg string, kv ...any) { l.log(nil, Debug, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(nil, Info, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(nil, Warn, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.log(nil, Error, msg, kv) }

// Fatal records the entry only. Exiting is left to the caller.
func (l *Logger) Fatal(msg string, kv ...any) { l.log(nil, Fatal, msg, kv) }

func (l *Logger) TraceCtx(ctx context.Context, msg string, kv ...any) { l.log(ctx, Trace, msg, kv) }
func (l *Logger) DebugCtx(ctx context.Context, msg string, kv ...any) { l.log(ctx, Debug, msg, kv) }
func (l *Logger) InfoCtx(ctx context.Context, msg string, kv ...any)  { l.log(ctx, Info, msg, kv) }
func (l *Logger) WarnCtx(ctx context.Context, msg string, kv ...any)  { l.log(ctx, Warn, msg, kv) }
func (l *Logger) ErrorCtx(ctx context.Context, msg string, kv ...any) { l.log(ctx, Error, msg, kv) }
func (l *Logger) FatalCtx(ctx context.Context, msg string, kv ...any) { l.log(ctx, Fatal, msg, kv) }
