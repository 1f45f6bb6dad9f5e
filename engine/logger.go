package engine

import (
	"context"
	"log/slog"

	"github.com/nilgrove/pcbstack/internal"
)

// logger is embedded by [Engine] for the same reason it is embedded by
// [tcp.ControlBlock] and the pcb/ipreasm packages: one field, gated
// debug/trace/error helpers, no repetition at every call site.
type logger struct {
	log *slog.Logger
}

// SetLogger installs log as the engine's logger and propagates it to the
// pool (and from there every PCB) and the reassembly table, so a single
// call wires logging through the whole stack.
func (e *Engine) SetLogger(log *slog.Logger) {
	e.logger = logger{log: log}
	e.pool.SetLogger(log)
	e.reasm.SetLogger(log)
}

func (l logger) logenabled(lvl slog.Level) bool {
	return internal.HeapAllocDebugging || (l.log != nil && l.log.Handler().Enabled(context.Background(), lvl))
}

func (l logger) logattrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, lvl, msg, attrs...)
}

func (l logger) debug(msg string, attrs ...slog.Attr) { l.logattrs(slog.LevelDebug, msg, attrs...) }
func (l logger) trace(msg string, attrs ...slog.Attr) {
	l.logattrs(internal.LevelTrace, msg, attrs...)
}
func (l logger) logerr(msg string, attrs ...slog.Attr) { l.logattrs(slog.LevelError, msg, attrs...) }
