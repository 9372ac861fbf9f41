package mqtt

import (
	"io"

	"github.com/sirupsen/logrus"
)

// discardLogger returns a logrus logger with output wired to io.Discard,
// so a Session that never sets Log pays only the cost of a disabled
// logger's early-return checks, not a nil-pointer special case scattered
// through session.go.
func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
