package utils

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrorHandler logs err under message and returns it wrapped; it is the
// single funnel for internal errors that also need a log line.
func ErrorHandler(err error, message string) error {
	if err != nil {
		Logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error(message)
		return fmt.Errorf("%s: %w", message, err)
	}
	return nil
}
