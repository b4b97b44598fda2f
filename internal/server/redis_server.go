package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"redis/internal/aof"
	"redis/internal/db"
	"redis/internal/dispatch"
	"redis/internal/logging"
	"redis/internal/metrics"
	"redis/internal/protocol"
)

// RedisServer owns the keyspace, dispatcher, and AOF writer, and drives a
// thin net.Listener accept loop over them. The wire protocol and the
// network transport are both intentionally minimal (§1): this is just
// enough for dispatch (C9) to have something to dispatch.
type RedisServer struct {
	config     *Config
	Keyspace   *db.Keyspace
	Dispatcher *dispatch.Dispatcher
	aofWriter  *aof.Writer

	listener        net.Listener
	connections     sync.Map // connID -> net.Conn
	connIDCounter   atomic.Int64
	activeConnCount atomic.Int64
	wg              sync.WaitGroup

	cronCancel context.CancelFunc

	mu         sync.RWMutex
	isShutdown bool

	ready chan struct{}
}

// NewRedisServer wires the keyspace, AOF writer, and dispatcher together
// from cfg, replaying any existing AOF before accepting connections.
func NewRedisServer(cfg *Config) *RedisServer {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ks := db.NewKeyspace(cfg.Databases, cfg.MaxMemoryBytes, cfg.EvictionPolicy(), cfg.MaxMemorySamples)

	var aofWriter *aof.Writer
	aofCfg := cfg.AOFConfig()
	if aofCfg.Enabled {
		var err error
		aofWriter, err = aof.NewWriter(aofCfg)
		if err != nil {
			logging.Warn("failed to create AOF writer, continuing without it", err)
			aofWriter = nil
		} else {
			logging.AOFEnabled(aofCfg.Filepath, cfg.AppendFsync)
		}
	}

	disp := dispatch.NewDispatcher(ks, aofWriter, cfg.Limits(), cfg.RequirePass)

	s := &RedisServer{
		config:     cfg,
		Keyspace:   ks,
		Dispatcher: disp,
		aofWriter:  aofWriter,
		ready:      make(chan struct{}),
	}

	if aofCfg.Enabled {
		if err := s.loadAOF(aofCfg.Filepath); err != nil {
			logging.Warn("failed to load AOF, starting with empty database", err)
		}
	}

	return s
}

// loadAOF replays every command in the append-only log through the
// dispatcher before the listener opens, reconstructing the keyspace as it
// was at last shutdown (§4.8).
func (s *RedisServer) loadAOF(path string) error {
	reader, err := aof.NewReader(path)
	if err != nil {
		return fmt.Errorf("open aof for replay: %w", err)
	}
	if reader == nil {
		return nil
	}
	defer reader.Close()

	start := time.Now()
	commands, err := reader.LoadAll()
	if err != nil {
		return fmt.Errorf("load aof commands: %w", err)
	}

	replayClientID := int64(-1)
	errorCount := 0
	for _, args := range commands {
		if len(args) == 0 {
			continue
		}
		if _, err := s.Dispatcher.Execute(replayClientID, args); err != nil {
			errorCount++
		}
	}
	logging.Logger.Info().
		Int("commands", len(commands)).
		Dur("elapsed", time.Since(start)).
		Int("errors", errorCount).
		Msg("aof replay complete")
	return nil
}

// Start opens the listener, launches the cron loop, and accepts
// connections until ctx is cancelled.
func (s *RedisServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener
	close(s.ready)
	logging.Startup(s.config.Bind, s.config.Port)

	cronCtx, cancel := context.WithCancel(ctx)
	s.cronCancel = cancel
	cronCfg := dispatch.DefaultCronConfig()
	cronCfg.AutoRewritePercentage = s.config.AutoAOFRewritePercent
	cronCfg.AutoRewriteMinSize = s.config.AutoAOFRewriteMinSize
	go s.Dispatcher.RunCron(cronCtx, cronCfg)

	go s.acceptConnections(ctx)

	<-ctx.Done()
	return nil
}

// Addr blocks until the listener is bound and returns its address. Used by
// callers (tests, or a parent process reading back an ephemeral :0 port)
// that need to know where the server actually ended up listening.
func (s *RedisServer) Addr() net.Addr {
	<-s.ready
	return s.listener.Addr()
}

func (s *RedisServer) acceptConnections(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				s.mu.RLock()
				down := s.isShutdown
				s.mu.RUnlock()
				if down {
					return
				}
				logging.Warn("accept failed", err)
				continue
			}

			if s.config.MaxConnections > 0 && s.activeConnCount.Load() >= int64(s.config.MaxConnections) {
				conn.Close()
				continue
			}

			s.activeConnCount.Add(1)
			s.wg.Add(1)
			go s.handleConnection(conn)
		}
	}
}

// handleConnection reads and dispatches commands from one client until it
// disconnects or sends something the wire parser rejects.
func (s *RedisServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	connID := s.connIDCounter.Add(1)
	defer func() {
		s.activeConnCount.Add(-1)
		metrics.SetConnectedClients(int(s.activeConnCount.Load()))
	}()

	s.connections.Store(connID, conn)
	defer s.connections.Delete(connID)
	defer conn.Close()
	defer s.Dispatcher.RemoveClient(connID)

	metrics.SetConnectedClients(int(s.activeConnCount.Load()))

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		if s.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}
		args, err := protocol.ParseCommand(reader)
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}

		result, err := s.Dispatcher.Execute(connID, args)
		var frame []byte
		if err != nil {
			frame = protocol.EncodeError(err.Error())
		} else {
			frame = protocol.EncodeReply(result)
		}
		if _, err := writer.Write(frame); err != nil {
			return
		}

		if !protocol.HasCompleteCommand(reader) {
			if err := writer.Flush(); err != nil {
				return
			}
		}
	}
}

// Shutdown closes the listener and every open connection, then flushes
// and closes the AOF writer (§4.9 SIGTERM handling).
func (s *RedisServer) Shutdown() {
	s.mu.Lock()
	if s.isShutdown {
		s.mu.Unlock()
		return
	}
	s.isShutdown = true
	s.mu.Unlock()

	logging.Shutdown()

	if s.cronCancel != nil {
		s.cronCancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}

	s.connections.Range(func(_, value interface{}) bool {
		if conn, ok := value.(net.Conn); ok {
			conn.Close()
		}
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}

	if s.aofWriter != nil {
		if err := s.aofWriter.Close(); err != nil {
			logging.Warn("error closing aof writer", err)
		}
	}
}
