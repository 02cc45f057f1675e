package log

import (
	"context"
	"sync/atomic"
)

var (
	global  atomic.Pointer[Logger]
	silence = New(Silent, discard{})
)

// SetDefault installs l as the process-wide logger. nil restores silence.
func SetDefault(l *Logger) {
	global.Store(l)
}

// Default returns the process-wide logger, or a silent one if none is set.
func Default() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	return silence
}

func GlobalTrace(msg string, kv ...any) { Default().log(nil, Trace, msg, kv) }
func GlobalDebug(msg string, kv ...any) { Default().log(nil, Debug, msg, kv) }
func GlobalInfo(msg string, kv ...any)  { Default().log(nil, Info, msg, kv) }
func GlobalWarn(msg string, kv ...any)  { Default().log(nil, Warn, msg, kv) }
func GlobalError(msg string, kv ...any) { Default().log(nil, Error, msg, kv) }
func GlobalFatal(msg string, kv ...any) { Default().log(nil, Fatal, msg, kv) }

func GlobalTraceCtx(ctx context.Context, msg string, kv ...any) { Default().log(ctx, Trace, msg, kv) }
func GlobalDebugCtx(ctx context.Context, msg string, kv ...any) { Default().log(ctx, Debug, msg, kv) }
func GlobalInfoCtx(ctx context.Context, msg string, kv ...any)  { Default().log(ctx, Info, msg, kv) }
func GlobalWarnCtx(ctx context.Context, msg string, kv ...any)  { Default().log(ctx, Warn, msg, kv) }
func GlobalErrorCtx(ctx context.Context, msg string, kv ...any) { Default().log(ctx, Error, msg, kv) }
func GlobalFatalCtx(ctx context.Context, msg string, kv ...any) { Default().log(ctx, Fatal, msg, kv) }
