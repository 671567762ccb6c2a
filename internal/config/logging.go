package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// InitLogging configures the standard logrus logger.  Unknown levels fall
// back to info; format "json" selects the JSON formatter.
func InitLogging(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)
	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
