package testutil

import (
	"io"

	"github.com/tphakala/birdobs/internal/logger"
)

// QuietLogger discards everything below error level
func QuietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}
