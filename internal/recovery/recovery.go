// internal/recovery/recovery.go
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"
)

// HandlePanic should be deferred at the top of main() or goroutines.
// It logs panic details and exits with code 1. log may be nil.
func HandlePanic(log *zap.Logger) {
	if r := recover(); r != nil {
		report(log, r)
		os.Exit(1)
	}
}

// HandlePanicFunc logs panic details and calls cleanup before exiting, so a
// sounding sidetone is silenced and the terminal restored.
func HandlePanicFunc(log *zap.Logger, cleanup func()) {
	if r := recover(); r != nil {
		report(log, r)
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}

func report(log *zap.Logger, r any) {
	stack := debug.Stack()
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
	if log != nil {
		log.Error("panic", zap.Any("value", r), zap.ByteString("stack", stack))
		_ = log.Sync()
	}
}

// Usage in goroutines (with cleanup):
//go func() {
//	defer recovery.HandlePanicFunc(logger, buzzer.Off)
//	runner.Run(ctx)
//}()
