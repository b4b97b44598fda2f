// Package aof implements the append-only command log: normal-operation
// appends under a configurable fsync policy, and a background rewrite
// protocol that compacts the log without blocking command execution.
package aof

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"redis/internal/logging"
	"redis/internal/metrics"
)

// SyncPolicy determines when the log is fsynced to disk.
type SyncPolicy int

const (
	// SyncAlways fsyncs after every write. No data loss, lowest throughput.
	SyncAlways SyncPolicy = iota

	// SyncEverySecond fsyncs on a 1-second ticker. Up to ~1s of data loss
	// on an unclean crash; the default policy.
	SyncEverySecond

	// SyncNo leaves flushing to the OS. Fastest, least durable.
	SyncNo
)

// Config holds append-only log configuration.
type Config struct {
	Enabled    bool
	Filepath   string
	SyncPolicy SyncPolicy
	BufferSize int

	// RewriteWarnBlocks/RewriteCritBlocks set the rewrite-buffer growth
	// thresholds (in 64-command blocks) at which a warning is logged, once
	// each.
	RewriteWarnBlocks int
	RewriteCritBlocks int
}

// DefaultConfig returns the default append-only log configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		Filepath:          "appendonly.aof",
		SyncPolicy:        SyncEverySecond,
		BufferSize:        4096,
		RewriteWarnBlocks: 10,
		RewriteCritBlocks: 100,
	}
}

// Writer appends normalized commands to the on-disk log. Safe for
// concurrent use from multiple goroutines, though the dispatcher (C9)
// is expected to serialize calls since it is itself single-threaded.
type Writer struct {
	config Config
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex

	lastSelectedDB int // -1 until the first command is written

	// Rewrite buffer: the hybrid double-write scheme that guarantees no
	// command is lost if a rewrite is in flight when it's appended.
	rewriteMu     sync.Mutex
	rewriteBuffer *[][]string
	isRewriting   bool

	totalWrites int64
	totalBytes  int64
	lastSync    time.Time

	syncTicker *time.Ticker
	stopChan   chan struct{}
	closed     bool
}

// NewWriter opens (or creates) the log file and returns a ready Writer. A
// disabled config returns a closed no-op Writer so callers don't need to
// nil-check.
func NewWriter(config Config) (*Writer, error) {
	if !config.Enabled {
		return &Writer{config: config, closed: true, lastSelectedDB: -1}, nil
	}

	file, err := os.OpenFile(config.Filepath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open aof file: %w", err)
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = 4096
	}

	initialBuffer := make([][]string, 0, 1024)

	w := &Writer{
		config:         config,
		file:           file,
		writer:         bufio.NewWriterSize(file, bufSize),
		rewriteBuffer:  &initialBuffer,
		lastSync:       time.Now(),
		stopChan:       make(chan struct{}),
		lastSelectedDB: -1,
	}

	if config.SyncPolicy == SyncEverySecond {
		w.syncTicker = time.NewTicker(time.Second)
		go w.backgroundSync()
	}

	logging.AOFEnabled(config.Filepath, syncPolicyName(config.SyncPolicy))
	return w, nil
}

func (w *Writer) backgroundSync() {
	for {
		select {
		case <-w.syncTicker.C:
			w.mu.Lock()
			if !w.closed && w.file != nil {
				w.writer.Flush()
				w.file.Sync()
				w.lastSync = time.Now()
			}
			w.mu.Unlock()
		case <-w.stopChan:
			return
		}
	}
}

// WriteCommand appends one already-normalized command to the log, for the
// given database index. A SELECT is emitted transparently whenever
// dbIndex differs from the database of the last-written command.
func (w *Writer) WriteCommand(dbIndex int, args []string) error {
	if !w.config.Enabled || w.closed {
		return nil
	}

	w.mu.Lock()
	if w.lastSelectedDB != dbIndex {
		if err := w.writeEncodedLocked([]string{"SELECT", strconv.Itoa(dbIndex)}); err != nil {
			w.mu.Unlock()
			return err
		}
		w.lastSelectedDB = dbIndex
	}
	if err := w.writeEncodedLocked(args); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	w.bufferForRewrite(args)
	return nil
}

// WriteTransaction appends an entire MULTI/EXEC batch atomically with
// respect to the log: every inner command lands between the two markers
// even if none were mutating at definition time.
func (w *Writer) WriteTransaction(dbIndex int, commands [][]string) error {
	if !w.config.Enabled || w.closed || len(commands) == 0 {
		return nil
	}

	w.mu.Lock()
	if w.lastSelectedDB != dbIndex {
		if err := w.writeEncodedLocked([]string{"SELECT", strconv.Itoa(dbIndex)}); err != nil {
			w.mu.Unlock()
			return err
		}
		w.lastSelectedDB = dbIndex
	}
	if err := w.writeEncodedLocked([]string{"MULTI"}); err != nil {
		w.mu.Unlock()
		return err
	}
	for _, cmd := range commands {
		if err := w.writeEncodedLocked(cmd); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	if err := w.writeEncodedLocked([]string{"EXEC"}); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	w.bufferForRewrite([]string{"MULTI"})
	for _, cmd := range commands {
		w.bufferForRewrite(cmd)
	}
	w.bufferForRewrite([]string{"EXEC"})
	return nil
}

// writeEncodedLocked writes one command's RESP encoding and applies the
// sync policy. Caller must hold w.mu.
func (w *Writer) writeEncodedLocked(args []string) error {
	encoded := EncodeCommand(args)
	n, err := w.writer.Write(encoded)
	if err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	w.totalWrites++
	w.totalBytes += int64(n)

	switch w.config.SyncPolicy {
	case SyncAlways:
		if err := w.writer.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		w.lastSync = time.Now()
	case SyncEverySecond, SyncNo:
		// left to the background ticker or the OS.
	}
	return nil
}

func (w *Writer) bufferForRewrite(args []string) {
	w.rewriteMu.Lock()
	defer w.rewriteMu.Unlock()
	if !w.isRewriting {
		return
	}
	argsCopy := make([]string, len(args))
	copy(argsCopy, args)
	*w.rewriteBuffer = append(*w.rewriteBuffer, argsCopy)
	metrics.SetAOFBufferedCommands(len(*w.rewriteBuffer))

	blocks := len(*w.rewriteBuffer) / 64
	if len(*w.rewriteBuffer)%64 == 0 && (blocks == w.config.RewriteCritBlocks || blocks == w.config.RewriteWarnBlocks) {
		logging.AOFRewriteBufferGrowth(blocks)
	}
}

// Sync forces a flush and fsync, used on graceful shutdown.
func (w *Writer) Sync() error {
	if !w.config.Enabled || w.closed {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	w.lastSync = time.Now()
	return nil
}

// Close flushes, syncs, and closes the log file.
func (w *Writer) Close() error {
	if !w.config.Enabled {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if w.syncTicker != nil {
		w.syncTicker.Stop()
		close(w.stopChan)
	}
	if w.writer != nil {
		if err := w.writer.Flush(); err != nil {
			return fmt.Errorf("flush on close: %w", err)
		}
	}
	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("sync on close: %w", err)
		}
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("close file: %w", err)
		}
	}
	return nil
}

// Stats reports append-only log counters for INFO/DEBUG surfaces.
type Stats struct {
	TotalWrites int64
	TotalBytes  int64
	LastSync    time.Time
	FilePath    string
	Enabled     bool
	SyncPolicy  string
}

// GetStats returns a snapshot of the writer's counters.
func (w *Writer) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		TotalWrites: w.totalWrites,
		TotalBytes:  w.totalBytes,
		LastSync:    w.lastSync,
		FilePath:    w.config.Filepath,
		Enabled:     w.config.Enabled,
		SyncPolicy:  syncPolicyName(w.config.SyncPolicy),
	}
}

func syncPolicyName(p SyncPolicy) string {
	switch p {
	case SyncAlways:
		return "always"
	case SyncEverySecond:
		return "everysec"
	case SyncNo:
		return "no"
	default:
		return "unknown"
	}
}

// IsWriteCommand reports whether cmd mutates the keyspace and therefore
// needs to be logged. Read-only and transaction-control commands (which
// are logged as their constituent commands, at EXEC time) return false.
func IsWriteCommand(cmd string) bool {
	switch cmd {
	case "SET", "SETNX", "SETEX", "PSETEX", "MSET", "MSETNX", "APPEND",
		"INCR", "INCRBY", "INCRBYFLOAT", "DECR", "DECRBY", "GETSET", "SETRANGE",
		"SETBIT", "BITOP":
		return true

	case "LPUSH", "LPUSHX", "RPUSH", "RPUSHX", "LPOP", "RPOP",
		"LSET", "LREM", "LTRIM", "LINSERT", "RPOPLPUSH":
		return true

	case "BLPOP", "BRPOP", "BRPOPLPUSH":
		return true

	case "HSET", "HSETNX", "HMSET", "HDEL", "HINCRBY", "HINCRBYFLOAT":
		return true

	case "SADD", "SREM", "SPOP", "SMOVE", "SUNIONSTORE", "SINTERSTORE", "SDIFFSTORE":
		return true

	case "ZADD", "ZINCRBY", "ZREM", "ZREMRANGEBYSCORE", "ZREMRANGEBYRANK",
		"ZUNIONSTORE", "ZINTERSTORE":
		return true

	case "DEL", "RENAME", "RENAMENX", "MOVE",
		"EXPIRE", "EXPIREAT", "PEXPIRE", "PEXPIREAT", "PERSIST":
		return true

	case "FLUSHALL", "FLUSHDB":
		return true

	case "SELECT", "MULTI", "EXEC", "DISCARD", "WATCH", "UNWATCH":
		return false

	default:
		return false
	}
}

// Rewrite compacts the log: snapshotFunc must return the minimal command
// sequence (already including any SELECT markers) that reconstructs the
// current keyspace. It runs unlocked, so it must read from a consistent,
// immutable view of the keyspace rather than the live one (see the
// goroutine-over-frozen-snapshot substitution for fork/CoW).
func (w *Writer) Rewrite(snapshotFunc func() [][]string) error {
	if w == nil {
		return fmt.Errorf("writer is nil")
	}
	logging.AOFRewriteStarted()
	start := time.Now()

	newBuffer := make([][]string, 0, 1024)
	w.rewriteMu.Lock()
	w.isRewriting = true
	w.rewriteBuffer = &newBuffer
	w.rewriteMu.Unlock()

	commands := snapshotFunc()

	tempPath := w.config.Filepath + ".rewrite.tmp"
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		w.abortRewrite()
		logging.AOFRewriteFailed(err)
		return fmt.Errorf("create temp aof file: %w", err)
	}

	tempWriter := bufio.NewWriterSize(tempFile, w.config.BufferSize)
	for _, args := range commands {
		if _, err := tempWriter.Write(EncodeCommand(args)); err != nil {
			tempFile.Close()
			os.Remove(tempPath)
			w.abortRewrite()
			logging.AOFRewriteFailed(err)
			return fmt.Errorf("write snapshot to temp aof: %w", err)
		}
	}

	w.rewriteMu.Lock()
	oldBuffer := w.rewriteBuffer
	finalBuffer := make([][]string, 0, 1024)
	w.rewriteBuffer = &finalBuffer
	w.rewriteMu.Unlock()

	for _, args := range *oldBuffer {
		if _, err := tempWriter.Write(EncodeCommand(args)); err != nil {
			tempFile.Close()
			os.Remove(tempPath)
			w.abortRewrite()
			logging.AOFRewriteFailed(err)
			return fmt.Errorf("write buffered commands to temp aof: %w", err)
		}
	}

	if err := tempWriter.Flush(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		w.abortRewrite()
		logging.AOFRewriteFailed(err)
		return fmt.Errorf("flush temp aof: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		w.abortRewrite()
		logging.AOFRewriteFailed(err)
		return fmt.Errorf("sync temp aof: %w", err)
	}
	tempFile.Close()

	w.mu.Lock()
	w.rewriteMu.Lock()
	w.isRewriting = false

	if w.writer != nil {
		w.writer.Flush()
	}
	if w.file != nil {
		w.file.Close()
	}

	if err := os.Rename(tempPath, w.config.Filepath); err != nil {
		w.rewriteMu.Unlock()
		w.mu.Unlock()
		logging.AOFRewriteFailed(err)
		return fmt.Errorf("replace aof file: %w", err)
	}

	file, err := os.OpenFile(w.config.Filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		w.rewriteMu.Unlock()
		w.mu.Unlock()
		logging.AOFRewriteFailed(err)
		return fmt.Errorf("reopen aof file: %w", err)
	}

	w.file = file
	w.writer = bufio.NewWriterSize(file, w.config.BufferSize)
	w.totalBytes = 0
	if info, err := file.Stat(); err == nil {
		w.totalBytes = info.Size()
	}
	w.lastSelectedDB = -1

	w.rewriteMu.Unlock()
	w.mu.Unlock()

	metrics.IncrAOFRewrite()
	metrics.SetAOFBufferedCommands(0)
	logging.AOFRewriteCompleted(time.Since(start), len(*oldBuffer))
	return nil
}

func (w *Writer) abortRewrite() {
	w.rewriteMu.Lock()
	w.isRewriting = false
	w.rewriteMu.Unlock()
}

// EncodeCommand encodes args as a RESP request array.
func EncodeCommand(args []string) []byte {
	size := 1 + len(strconv.Itoa(len(args))) + 2
	for _, arg := range args {
		size += 1 + len(strconv.Itoa(len(arg))) + 2
		size += len(arg) + 2
	}

	buf := make([]byte, 0, size)
	buf = append(buf, '*')
	buf = append(buf, strconv.Itoa(len(args))...)
	buf = append(buf, '\r', '\n')
	for _, arg := range args {
		buf = append(buf, '$')
		buf = append(buf, strconv.Itoa(len(arg))...)
		buf = append(buf, '\r', '\n')
		buf = append(buf, arg...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}
