package logger

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Init configures the process-wide logrus logger.
func Init(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("Init: invalid log level %q: %w", level, err)
	}

	log.SetLevel(parsed)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	return nil
}
