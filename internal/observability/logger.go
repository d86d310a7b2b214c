package observability

import "github.com/tphakala/birdobs/internal/logger"

// getLogger resolves the module logger on use so it follows logger.SetGlobal
func getLogger() logger.Logger {
	return logger.Global().Module("observability")
}
