// Package logging centralizes the logrus setup the rest of voltgo builds
// field loggers from: the conn_id/host_id/partition/client_token fields
// SPEC_FULL.md's ambient-stack section calls for, and a single place to
// change the output format.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger configured with a text formatter and the
// given level. Passing an invalid level string falls back to Info.
func New(level string) logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// NewWithOutput is New but with an explicit writer, for tests that want
// to assert on log output instead of writing to stderr.
func NewWithOutput(level string, w io.Writer) logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// ConnFields builds the standard per-connection field set used across
// conn.Conn and client.Client log lines.
func ConnFields(connID string, hostID int32) logrus.Fields {
	return logrus.Fields{
		"conn_id": connID,
		"host_id": hostID,
	}
}

// InvocationFields extends ConnFields with the per-request identifiers
// logged around an invocation's lifecycle.
func InvocationFields(connID string, hostID int32, clientToken int64, partition int32) logrus.Fields {
	return logrus.Fields{
		"conn_id":      connID,
		"host_id":      hostID,
		"client_token": clientToken,
		"partition":    partition,
	}
}
