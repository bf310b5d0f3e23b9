package serviceutil

import (
	"log/slog"
	"os"
)

// Fatal logs message with the error and any extra attributes, then exits with status 1.
func Fatal(message string, err error, args ...any) {
	attrs := args
	if err != nil {
		attrs = append([]any{"err", err.Error()}, args...)
	}
	slog.Error(message, attrs...)
	os.Exit(1)
}
