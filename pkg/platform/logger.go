package platform

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// InitLogger builds the process logger. Human-readable console output on
// stderr so stdout stays free for command output.
func InitLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return logger
}
