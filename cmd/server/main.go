package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"redis/internal/logging"
	"redis/internal/metrics"
	"redis/internal/server"
)

func main() {
	port := flag.Int("port", 6379, "Port to listen on")
	bind := flag.String("bind", "0.0.0.0", "Address to bind to")
	databases := flag.Int("databases", 16, "Number of numbered databases")

	maxMemory := flag.Int64("maxmemory", 0, "Maximum memory in bytes, 0 disables the cap")
	maxMemoryPolicy := flag.String("maxmemory-policy", "noeviction", "Eviction policy once over maxmemory")
	maxMemorySamples := flag.Int("maxmemory-samples", 5, "Candidates sampled per eviction step")

	appendOnly := flag.Bool("appendonly", false, "Enable the append-only file")
	appendFsync := flag.String("appendfsync", "everysec", "AOF fsync policy: always, everysec, or no")
	autoRewritePercent := flag.Int("auto-aof-rewrite-percentage", 100, "AOF growth percentage that triggers a rewrite")
	autoRewriteMinSize := flag.Int64("auto-aof-rewrite-min-size", 64*1024*1024, "Minimum AOF size before growth can trigger a rewrite")

	hashMaxEntries := flag.Int("hash-max-entries", 128, "Hash listpack->table promotion entry threshold")
	hashMaxValue := flag.Int("hash-max-value", 64, "Hash listpack->table promotion value-size threshold")
	listMaxEntries := flag.Int("list-max-entries", 128, "List listpack->quicklist promotion entry threshold")
	listMaxValue := flag.Int("list-max-value", 64, "List listpack->quicklist promotion value-size threshold")
	setMaxIntset := flag.Int("set-max-intset-entries", 512, "Set intset->hashtable promotion entry threshold")
	zsetMaxEntries := flag.Int("zset-max-entries", 128, "Sorted set listpack->skiplist promotion entry threshold")
	zsetMaxValue := flag.Int("zset-max-value", 64, "Sorted set listpack->skiplist promotion value-size threshold")

	requirePass := flag.String("requirepass", "", "Require AUTH with this password, empty disables it")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve Prometheus metrics on, empty disables it")
	flag.Parse()

	cfg := &server.Config{
		Bind:           *bind,
		Port:           *port,
		MaxConnections: 10000,
		Databases:      *databases,

		MaxMemoryBytes:   *maxMemory,
		MaxMemoryPolicy:  *maxMemoryPolicy,
		MaxMemorySamples: *maxMemorySamples,

		AppendOnly:            *appendOnly,
		AppendFsync:           *appendFsync,
		AutoAOFRewritePercent: *autoRewritePercent,
		AutoAOFRewriteMinSize: *autoRewriteMinSize,
		AOFPath:               "appendonly.aof",

		HashMaxEntries: *hashMaxEntries,
		HashMaxValue:   *hashMaxValue,
		ListMaxEntries: *listMaxEntries,
		ListMaxValue:   *listMaxValue,
		SetMaxIntset:   *setMaxIntset,
		ZSetMaxEntries: *zsetMaxEntries,
		ZSetMaxValue:   *zsetMaxValue,

		RequirePass: *requirePass,
	}

	if *metricsAddr != "" {
		metrics.ServeHTTP(*metricsAddr)
	}

	srv := server.NewRedisServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		srv.Shutdown()
	}()

	if err := srv.Start(ctx); err != nil {
		logging.Fatal("server failed", err)
	}
}
