package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the client's structured logger.
type Logger = zerolog.Logger

// New returns a timestamped logger writing to w. Unknown levels fall back to
// info.
func New(level string, w io.Writer) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &logger
}
