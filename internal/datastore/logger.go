package datastore

import "github.com/tphakala/birdobs/internal/logger"

func getLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
