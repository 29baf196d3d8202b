package logging

import (
	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger. Production gets JSON lines,
// everything else the text formatter. An unknown level falls back to info.
func Setup(level string, production bool) {
	if production {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
