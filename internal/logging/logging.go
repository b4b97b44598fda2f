// Package logging wires up the structured logger used across the server,
// AOF, rewrite, and periodic-cron subsystems, replacing the teacher's
// plain log.Printf call sites with zerolog fields carrying the same
// information.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. Callers should prefer the
// package-level convenience functions below over touching this directly.
var Logger = New(os.Stderr, zerolog.InfoLevel)

// New builds a console-formatted zerolog.Logger writing to w at the given
// minimum level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// SetLevel adjusts the process-wide minimum log level. cmd/server has no
// flag for it, so the level stays at Info unless a caller changes it.
func SetLevel(level zerolog.Level) {
	Logger = Logger.Level(level)
}

// Startup logs server bring-up, mirroring the teacher's
// "Starting Redis server on %s:%d" call site.
func Startup(host string, port int) {
	Logger.Info().Str("host", host).Int("port", port).Msg("starting server")
}

// Shutdown logs graceful shutdown, mirroring "Shutting down server...".
func Shutdown() {
	Logger.Info().Msg("shutting down server")
}

// AOFEnabled logs AOF persistence coming up, mirroring
// "AOF enabled: %s (sync: %s)".
func AOFEnabled(path string, syncPolicy string) {
	Logger.Info().Str("path", path).Str("sync_policy", syncPolicy).Msg("aof enabled")
}

// AOFRewriteStarted/Completed/Failed log the background rewrite protocol.
func AOFRewriteStarted() {
	Logger.Info().Msg("aof rewrite started")
}

func AOFRewriteCompleted(elapsed time.Duration, bufferedCommands int) {
	Logger.Info().
		Dur("elapsed", elapsed).
		Int("buffered_commands", bufferedCommands).
		Msg("aof rewrite completed")
}

func AOFRewriteFailed(err error) {
	Logger.Error().Err(err).Msg("aof rewrite failed")
}

// AOFRewriteBufferGrowth logs, at warn level, the rewrite buffer reaching
// one of the aof.Config block thresholds (RewriteWarnBlocks or
// RewriteCritBlocks, 10 and 100 by default), matching spec §4.8's
// instruction to surface unexpectedly large rewrite buffers.
func AOFRewriteBufferGrowth(blocks int) {
	Logger.Warn().Int("blocks", blocks).Msg("aof rewrite buffer growing")
}

// KeyExpired/KeyEvicted log individual expiration/eviction events at
// debug level (high frequency, off by default).
func KeyExpired(key string, dbIndex int) {
	Logger.Debug().Str("key", key).Int("db", dbIndex).Msg("key expired")
}

func KeyEvicted(key string, dbIndex int, policy string) {
	Logger.Debug().Str("key", key).Int("db", dbIndex).Str("policy", policy).Msg("key evicted")
}

// RehashStarted logs a dict growing into an incremental rehash.
func RehashStarted(dbIndex int, oldSize, newSize int) {
	Logger.Debug().Int("db", dbIndex).Int("old_size", oldSize).Int("new_size", newSize).Msg("dict rehash started")
}

// Warn logs a recoverable problem, mirroring the teacher's "Warning: ..."
// call sites (e.g. "Failed to create AOF writer, continuing without it").
func Warn(msg string, err error) {
	Logger.Warn().Err(err).Msg(msg)
}

// Fatal logs an unrecoverable startup error and exits, mirroring the
// teacher's log.Fatalf call sites.
func Fatal(msg string, err error) {
	Logger.Fatal().Err(err).Msg(msg)
}
