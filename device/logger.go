// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all log records. Enabled returns false so disabled
// logging costs nothing on the hot path.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := slog.New(nopHandler{})
	loggerPtr.Store(l)
}

// SetLogger configures logging for the device registry and its backends.
// The engine propagates its logger here; call this directly only when
// using the device package on its own. Pass nil to silence output.
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current device logger. Backend packages call this to
// share the engine's logger configuration without an import cycle.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
