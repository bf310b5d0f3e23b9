package telemetry

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// InitSlog installs the process wide logger, colored when stderr is a terminal.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "01/02 15:04:05",
		NoColor:    !isTerminal(os.Stderr),
	}))
	slog.SetDefault(logger)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
