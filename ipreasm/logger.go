package ipreasm

import (
	"context"
	"log/slog"

	"github.com/nilgrove/pcbstack/internal"
)

// logger is embedded anonymously by [Table], carrying the same
// gate-then-format idiom used throughout this module's sibling packages: a
// nil *slog.Logger means logging is off, and logenabled lets a caller skip
// building attrs it would otherwise throw away.
type logger struct {
	log *slog.Logger
}

// SetLogger installs the logger used for reassembly diagnostics (fragment
// drops, slot eviction, completed datagrams). A nil log disables logging.
func (t *Table) SetLogger(log *slog.Logger) {
	t.logger = logger{log: log}
}

func (t *Table) logenabled(lvl slog.Level) bool {
	return internal.HeapAllocDebugging || (t.log != nil && t.log.Handler().Enabled(context.Background(), lvl))
}

func (t *Table) logattrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	internal.LogAttrs(t.log, lvl, msg, attrs...)
}

func (t *Table) debug(msg string, attrs ...slog.Attr) {
	t.logattrs(slog.LevelDebug, msg, attrs...)
}

func (t *Table) trace(msg string, attrs ...slog.Attr) {
	t.logattrs(internal.LevelTrace, msg, attrs...)
}

func (t *Table) logerr(msg string, attrs ...slog.Attr) {
	t.logattrs(slog.LevelError, msg, attrs...)
}
