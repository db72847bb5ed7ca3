package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it. It must be called directly
// in a defer statement:
//
//	defer observability.RecoverPanic(logger, "registry watcher")
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logPanic(logger, context, r)
	}
}

// Go runs fn in a goroutine that logs instead of crashing on panic
func Go(logger *Logger, context string, fn func()) {
	go func() {
		defer RecoverPanic(logger, context)
		fn()
	}()
}

// PanicError converts a recovered value to an error, or nil when r is nil
func PanicError(r interface{}) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

func logPanic(logger *Logger, context string, r interface{}) {
	logger.WithFields(map[string]interface{}{
		"panic":   fmt.Sprint(r),
		"stack":   string(debug.Stack()),
		"context": context,
	}).Error("PANIC recovered")
}
