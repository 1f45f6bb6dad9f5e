package tcp

import "log/slog"

// logger is embedded anonymously by [ControlBlock] so it gets gated
// log/debug/trace/logerr helpers (see debug.go) without a separate
// *slog.Logger field.
type logger struct {
	log *slog.Logger
}
