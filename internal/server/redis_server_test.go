package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*RedisServer, func()) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Bind = "127.0.0.1"
	cfg.Port = 0

	srv := NewRedisServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Start(ctx)

	done := make(chan struct{})
	go func() {
		srv.Addr()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server never became ready")
	}

	return srv, func() {
		cancel()
		srv.Shutdown()
	}
}

func TestRedisServerHandlesSetAndGet(t *testing.T) {
	srv, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "+OK\r\n", line)

	_, err = conn.Write([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	require.NoError(t, err)

	header, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "$3\r\n", header)
	body, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "bar\r\n", body)
}

func TestRedisServerRejectsGarbage(t *testing.T) {
	srv, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("*-garbage\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	_, err = reader.ReadString('\n')
	assert.Error(t, err) // connection closed by the server
}

func TestRedisServerEnforcesMaxConnections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bind = "127.0.0.1"
	cfg.Port = 0
	cfg.MaxConnections = 1

	srv := NewRedisServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		srv.Shutdown()
	}()
	go srv.Start(ctx)
	addr := srv.Addr().String()

	first, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer first.Close()

	second, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = second.Read(buf)
	assert.Error(t, err) // server closed the over-limit connection
}
