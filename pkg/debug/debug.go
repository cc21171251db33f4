// Package debug gates fine-grained diagnostic logging by subsystem.
//
// Operators enable categories through SANDBOXD_DEBUG or the logging.debug
// config key; the environment wins when both are set. The slog level still
// decides how much each category emits, with TRACE below DEBUG for
// per-request payload detail.
//
//	debug.Log("engine", "container created", "name", name)
//	if debug.Enabled("repos") { /* expensive formatting */ }
//
// Categories: engine, repos, storage, orchestrator, transport, config,
// and "all".
package debug

import (
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug for maximum verbosity.
const LevelTrace = slog.LevelDebug - 4

// categories is written once at startup and read everywhere after, so
// access is unsynchronized.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv("SANDBOXD_DEBUG"))
}

// Init applies the configured category list. The SANDBOXD_DEBUG
// environment variable, when set, wins over the config value.
func Init(configCategories string) {
	cats := os.Getenv("SANDBOXD_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)
}

// Enabled reports whether the category is switched on.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug-level message when the category is enabled; otherwise
// it is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message when the category is enabled. Visible
// only with the log level at TRACE.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(nil, LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// ParseLevel converts a level name to a slog.Level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate caps s at maxLen characters for log emission, marking the cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		if cat = strings.TrimSpace(strings.ToLower(cat)); cat != "" {
			m[cat] = true
		}
	}
	return m
}
