package software

import (
	"log/slog"

	"github.com/gogpu/staging/internal/logging"
)

var logger logging.Pointer

// slogger returns the current package logger.
func slogger() *slog.Logger { return logger.Load() }

// SetLogger sets the logger for the software driver. It is called by
// staging.SetLogger through the driver; nil restores silent operation.
func (d *Driver) SetLogger(l *slog.Logger) {
	logger.Store(l)
}
