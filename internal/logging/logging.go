// Package logging holds the silent-by-default slog plumbing shared by the
// drivers.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// NopHandler is a slog.Handler that discards all records. Enabled returns
// false so callers skip formatting entirely.
type NopHandler struct{}

func (NopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NopHandler{} }
func (NopHandler) WithGroup(string) slog.Handler             { return NopHandler{} }

// Nop returns a logger that discards all output.
func Nop() *slog.Logger { return slog.New(NopHandler{}) }

// Pointer holds a logger that can be swapped while other goroutines log.
// The zero value logs nothing.
type Pointer struct {
	p atomic.Pointer[slog.Logger]
}

// Load returns the current logger, never nil.
func (lp *Pointer) Load() *slog.Logger {
	if l := lp.p.Load(); l != nil {
		return l
	}
	return nop
}

// Store replaces the logger. nil restores silence.
func (lp *Pointer) Store(l *slog.Logger) {
	if l == nil {
		l = nop
	}
	lp.p.Store(l)
}

var nop = Nop()
