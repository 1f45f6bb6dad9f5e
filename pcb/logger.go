package pcb

import (
	"context"
	"log/slog"

	"github.com/nilgrove/pcbstack/internal"
)

// logger is embedded anonymously by [Pool] and [Listener], mirroring the
// gate-then-format idiom the embedded [tcp.ControlBlock] already uses for
// per-connection tracing (see tcp/debug.go): a nil *slog.Logger disables
// logging entirely, and logenabled lets a caller skip building attrs for a
// message that would just be discarded.
type logger struct {
	log *slog.Logger
}

func (l logger) logenabled(lvl slog.Level) bool {
	return internal.HeapAllocDebugging || (l.log != nil && l.log.Handler().Enabled(context.Background(), lvl))
}

func (l logger) logattrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, lvl, msg, attrs...)
}

func (l logger) debug(msg string, attrs ...slog.Attr) {
	l.logattrs(slog.LevelDebug, msg, attrs...)
}

func (l logger) trace(msg string, attrs ...slog.Attr) {
	l.logattrs(internal.LevelTrace, msg, attrs...)
}

func (l logger) logerr(msg string, attrs ...slog.Attr) {
	l.logattrs(slog.LevelError, msg, attrs...)
}

// SetLogger installs the logger used for pool-level diagnostics (PCB
// eviction, exhaustion, rejected output segments) and propagates the same logger down to
// every PCB's embedded [tcp.ControlBlock] so per-connection tracing shares
// one sink.
func (p *Pool) SetLogger(log *slog.Logger) {
	p.logger = logger{log: log}
	for i := range p.pcbs {
		p.pcbs[i].scb.SetLogger(log)
	}
}

// SetLogger installs the logger used for listen-queue diagnostics (pending
// connections timing out, queue-full drops).
func (l *Listener) SetLogger(log *slog.Logger) {
	l.logger = logger{log: log}
}
