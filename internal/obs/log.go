// Package obs wires the process-wide structured logger. Every
// component logs through here rather than the standard library's log
// package so that fields (source_key, run_id, doc_url) stay queryable.
package obs

import (
	"os"
	"strings"

	"github.com/phuslu/log"
)

// L is the process-wide logger, configured once by Init.
var L = log.DefaultLogger

// Init configures the logger from LOG_LEVEL (trace/debug/info/warn/error,
// default info) and LOG_FORMAT (json/console, default json) env vars.
func Init() {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	L = log.Logger{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		L.Writer = &log.ConsoleWriter{ColorOutput: true}
	}
	log.DefaultLogger = L
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Source returns a logger context scoped to one discovery/fetch source.
func Source(sourceKey string) *log.Entry {
	return L.Info().Str("source_key", sourceKey)
}

// Run returns a logger context scoped to one ingestion job run.
func Run(runID, sourceKey string) *log.Entry {
	return L.Info().Str("run_id", runID).Str("source_key", sourceKey)
}
