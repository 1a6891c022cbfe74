// Package notify delivers rendered reminder messages to a destination. The
// engine only hands off text; channel mechanics live behind Dispatcher.
package notify

import (
	"context"
	"errors"
	"log"
)

var ErrNoDestination = errors.New("notify: empty destination")

// Dispatcher accepts a rendered message for a destination and reports
// success or failure. Implementations must be safe for concurrent use.
type Dispatcher interface {
	Send(ctx context.Context, destination, message string) error
}

// LogDispatcher writes reminders to a logger. It is the default channel when
// nothing else is configured, and doubles as a dry-run mode.
type LogDispatcher struct {
	logger *log.Logger
}

func NewLogDispatcher(logger *log.Logger) *LogDispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, destination, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrNoDestination
	}
	d.logger.Printf("reminder for %s: %s", destination, message)
	return nil
}
