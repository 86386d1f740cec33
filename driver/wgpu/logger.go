//go:build !nogpu

package wgpu

import (
	"log/slog"

	"github.com/gogpu/staging/internal/logging"
)

var logger logging.Pointer

func slogger() *slog.Logger { return logger.Load() }

// SetLogger sets the logger for the wgpu driver.
func (d *Driver) SetLogger(l *slog.Logger) {
	logger.Store(l)
}
