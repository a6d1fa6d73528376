// Package store persists agent state in a local Badger database: the
// Gmail history cursor and per-contact memory.
package store

import (
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// Open opens (or creates) the Badger database under dir.
func Open(dir string, logger *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(newBadgerLogger(logger))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger.Open failed: %w", err)
	}

	return db, nil
}

// OpenInMemory opens a throwaway in-memory database, used in tests.
func OpenInMemory(logger *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(newBadgerLogger(logger))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger.Open failed: %w", err)
	}

	return db, nil
}

func newBadgerLogger(logger *slog.Logger) badger.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &badgerLogger{logger: logger}
}

// badgerLogger bridges Badger's printf-style logger onto slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
