// Package memory samples the server process's resident set size for the
// informational memory gauge (C11). It is deliberately independent of the
// keyspace-summed used-memory figure that gates eviction (internal/db's
// Keyspace.UsedBytes) — the two are allowed to diverge, and only the
// keyspace figure is compared against maxmemory.
package memory

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"redis/internal/logging"
	"redis/internal/metrics"
)

// SampleRSS reads the current process's resident set size once.
func SampleRSS() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

// StartSampler samples RSS on the given interval and feeds it to the
// process-RSS metric gauge until stop is closed.
func StartSampler(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rss, err := SampleRSS()
				if err != nil {
					logging.Warn("rss sample failed", err)
					continue
				}
				metrics.SetProcessRSS(rss)
			case <-stop:
				return
			}
		}
	}()
}
