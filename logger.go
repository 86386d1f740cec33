package staging

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// liveDevices tracks devices whose drivers receive logger updates.
var (
	liveMu      sync.Mutex
	liveDevices = make(map[uint64]weak.Pointer[Device])
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for staging and the drivers of every open
// device. By default, staging produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
//
// Log levels used by staging:
//   - [slog.LevelDebug]: allocations, copies, texture creation
//   - [slog.LevelInfo]: device open and dispose
//   - [slog.LevelWarn]: release problems a driver ignored, such as destroying
//     a texture twice
//
// Example:
//
//	staging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	defer liveMu.Unlock()
	for id, wp := range liveDevices {
		d := wp.Value()
		if d == nil {
			delete(liveDevices, id)
			continue
		}
		propagateLogger(d.drv, l)
	}
}

// Logger returns the current logger used by staging.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by drivers that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a driver if it implements
// the loggerSetter interface.
func propagateLogger(drv any, l *slog.Logger) {
	if ls, ok := drv.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// trackDevice registers d for logger propagation and hands its driver the
// current logger.
func trackDevice(d *Device) {
	liveMu.Lock()
	liveDevices[d.id] = weak.Make(d)
	liveMu.Unlock()
	propagateLogger(d.drv, Logger())
}

func untrackDevice(id uint64) {
	liveMu.Lock()
	delete(liveDevices, id)
	liveMu.Unlock()
}
