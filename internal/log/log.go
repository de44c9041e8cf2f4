// Package log provides the logging backend, based around the
// go-logging package. Per-module leveled loggers write to a file,
// stderr, or nowhere. Nothing in this module ever logs key material,
// unlock codes or share bytes.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/op/go-logging.v1"
)

type discardCloser struct{}

func (discardCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardCloser) Close() error                { return nil }

// Backend is a log backend handing out per-module loggers.
type Backend struct {
	backend logging.LeveledBackend
	w       io.WriteCloser
}

// New initializes a logging backend. An empty file means stderr;
// disable swallows all output (used by tests).
func New(file, level string, disable bool) (*Backend, error) {
	lvl, err := logLevelFromString(level)
	if err != nil {
		return nil, err
	}

	b := new(Backend)
	switch {
	case disable:
		b.w = discardCloser{}
	case file == "":
		b.w = os.Stderr
	default:
		b.w, err = os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("log: failed to open log file: %v", err)
		}
	}

	logFmt := logging.MustStringFormatter("%{time:15:04:05.000} %{level:.4s} %{module}: %{message}")
	base := logging.NewLogBackend(b.w, "", 0)
	b.backend = logging.AddModuleLevel(logging.NewBackendFormatter(base, logFmt))
	b.backend.SetLevel(lvl, "")
	return b, nil
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b.backend)
	return l
}

// Close releases the log file, if any.
func (b *Backend) Close() error { return b.w.Close() }

func logLevelFromString(l string) (logging.Level, error) {
	switch strings.ToUpper(l) {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.ERROR, fmt.Errorf("log: invalid level: %q", l)
	}
}
