package dispatch

import (
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"time"

	"redis/internal/db"
	"redis/internal/engine"
	"redis/internal/storage"
)

func registerAdminCommands(register func(...Command)) {
	register(
		Command{Name: "SAVE", Arity: 1, Flags: FlagAdmin, Handler: cmdSave},
		Command{Name: "BGSAVE", Arity: -1, Flags: FlagAdmin, Handler: cmdBGSave},
		Command{Name: "BGREWRITEAOF", Arity: 1, Flags: FlagAdmin, Handler: cmdBGRewriteAOF},
		Command{Name: "LASTSAVE", Arity: 1, Flags: FlagAdmin, Handler: cmdLastSave},
		Command{Name: "SHUTDOWN", Arity: -1, Flags: FlagAdmin, Handler: cmdShutdown},
		Command{Name: "DEBUG", Arity: -2, Flags: FlagAdmin, Handler: cmdDebug},
		Command{Name: "CONFIG", Arity: -2, Flags: FlagAdmin, Handler: cmdConfig},
		Command{Name: "INFO", Arity: -1, Flags: FlagAdmin | FlagAllowedWhileLoading, Handler: cmdInfo},
		Command{Name: "CLIENT", Arity: -2, Flags: FlagAdmin, Handler: cmdClient},
		Command{Name: "TIME", Arity: 1, Flags: FlagAdmin | FlagAllowedWhileLoading, Handler: cmdTime},
		Command{Name: "SLOWLOG", Arity: -2, Flags: FlagAdmin, Handler: cmdSlowlog},
		Command{Name: "AUTH", Arity: 2, Flags: FlagAllowedWhileLoading, Handler: cmdAuth},
	)
}

// cmdSave and cmdBGSave reuse the AOF rewrite as the snapshot mechanism —
// this repo has no on-disk RDB format (out of scope per §1), so "saving"
// means forcing the append-only log down to its minimal replayable form.
func cmdSave(ctx *ExecContext, args []string) (interface{}, error) {
	if err := ctx.Dispatcher.rewriteAOF(); err != nil {
		return nil, fmt.Errorf("ERR %v", err)
	}
	ctx.Dispatcher.mu.Lock()
	ctx.Dispatcher.lastSave = time.Now()
	ctx.Dispatcher.mu.Unlock()
	return "OK", nil
}

func cmdBGSave(ctx *ExecContext, args []string) (interface{}, error) {
	disp := ctx.Dispatcher
	go func() {
		if err := disp.rewriteAOF(); err == nil {
			disp.mu.Lock()
			disp.lastSave = time.Now()
			disp.mu.Unlock()
		}
	}()
	return "Background saving started", nil
}

func cmdBGRewriteAOF(ctx *ExecContext, args []string) (interface{}, error) {
	disp := ctx.Dispatcher
	go func() { _ = disp.rewriteAOF() }()
	return "Background append only file rewriting started", nil
}

// rewriteAOF snapshots every database into the minimal command sequence
// that reconstructs it and hands that to the AOF writer's rewrite
// protocol (§4.8.2).
func (disp *Dispatcher) rewriteAOF() error {
	if disp.AOF == nil {
		return fmt.Errorf("AOF is not enabled")
	}
	return disp.AOF.Rewrite(func() [][]string {
		return disp.snapshotCommands()
	})
}

const snapshotBatchSize = 64

// snapshotCommands reconstructs the entire keyspace as the minimal command
// sequence that would recreate it: a SELECT per non-empty database, then one
// SET/RPUSH/SADD/ZADD/HSET per key (batched up to snapshotBatchSize
// members per command), followed by a PEXPIREAT for any key carrying a
// TTL at the moment of the snapshot (§4.8.2).
func (disp *Dispatcher) snapshotCommands() [][]string {
	var out [][]string
	for i := 0; i < disp.Keyspace.Len(); i++ {
		d := disp.Keyspace.DB(i)
		var dbCommands [][]string
		d.Each(func(key string, v *storage.Value) {
			dbCommands = append(dbCommands, snapshotValueCommands(d, key, v)...)
			if deadline, ok := d.ExpireDeadline(key); ok {
				dbCommands = append(dbCommands, []string{"PEXPIREAT", key, strconv.FormatInt(deadline, 10)})
			}
		})
		if len(dbCommands) == 0 {
			continue
		}
		out = append(out, []string{"SELECT", strconv.Itoa(i)})
		out = append(out, dbCommands...)
	}
	return out
}

func snapshotValueCommands(d *db.Database, key string, v *storage.Value) [][]string {
	switch v.Kind {
	case storage.KindString:
		b, err := engine.Get(d, key)
		if err != nil {
			return nil
		}
		return [][]string{{"SET", key, string(b)}}

	case storage.KindList:
		items, err := engine.LRange(d, key, 0, -1)
		if err != nil {
			return nil
		}
		return batchedCommand("RPUSH", key, bytesToStrings(items))

	case storage.KindSet:
		members, err := engine.SMembers(d, key)
		if err != nil {
			return nil
		}
		return batchedCommand("SADD", key, bytesToStrings(members))

	case storage.KindHash:
		pairs, err := engine.HGetAll(d, key)
		if err != nil {
			return nil
		}
		flat := make([]string, 0, len(pairs)*2)
		for _, p := range pairs {
			flat = append(flat, string(p[0]), string(p[1]))
		}
		return batchedCommand("HSET", key, flat)

	case storage.KindZSet:
		members, err := engine.ZRange(d, key, 0, -1, false)
		if err != nil {
			return nil
		}
		flat := make([]string, 0, len(members)*2)
		for _, m := range members {
			flat = append(flat, strconv.FormatFloat(m.Score, 'f', -1, 64), m.Member)
		}
		return batchedCommand("ZADD", key, flat)
	}
	return nil
}

// batchedCommand splits members into groups of snapshotBatchSize, emitting
// one command per group so no single AOF line grows unbounded.
func batchedCommand(name, key string, members []string) [][]string {
	if len(members) == 0 {
		return nil
	}
	var out [][]string
	for i := 0; i < len(members); i += snapshotBatchSize {
		end := i + snapshotBatchSize
		if end > len(members) {
			end = len(members)
		}
		cmd := append([]string{name, key}, members[i:end]...)
		out = append(out, cmd)
	}
	return out
}

func bytesToStrings(items [][]byte) []string {
	out := make([]string, len(items))
	for i, b := range items {
		out[i] = string(b)
	}
	return out
}

func cmdLastSave(ctx *ExecContext, args []string) (interface{}, error) {
	ctx.Dispatcher.mu.Lock()
	t := ctx.Dispatcher.lastSave
	ctx.Dispatcher.mu.Unlock()
	return t.Unix(), nil
}

func cmdShutdown(ctx *ExecContext, args []string) (interface{}, error) {
	nosave := false
	for _, a := range args[1:] {
		if strings.EqualFold(a, "NOSAVE") {
			nosave = true
		}
	}
	if !nosave && ctx.Dispatcher.AOF != nil {
		_ = ctx.Dispatcher.rewriteAOF()
	}
	if ctx.Dispatcher.AOF != nil {
		_ = ctx.Dispatcher.AOF.Close()
	}
	return nil, nil
}

func cmdDebug(ctx *ExecContext, args []string) (interface{}, error) {
	sub := strings.ToUpper(args[1])
	switch sub {
	case "SLEEP":
		if len(args) < 3 {
			return nil, engine.ErrSyntax
		}
		seconds, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return nil, engine.ErrNotFloat
		}
		time.Sleep(time.Duration(seconds * float64(time.Second)))
		return "OK", nil
	case "JSONSET", "SET-ACTIVE-EXPIRE", "QUICKLIST-PACKED-THRESHOLD":
		return "OK", nil
	default:
		return nil, fmt.Errorf("ERR unknown DEBUG subcommand '%s'", args[1])
	}
}

func cmdConfig(ctx *ExecContext, args []string) (interface{}, error) {
	sub := strings.ToUpper(args[1])
	switch sub {
	case "GET":
		if len(args) != 3 {
			return nil, engine.ErrSyntax
		}
		val, ok := ctx.Dispatcher.configGet(args[2])
		if !ok {
			return []interface{}{}, nil
		}
		return []interface{}{args[2], val}, nil
	case "SET":
		if len(args) != 4 {
			return nil, engine.ErrSyntax
		}
		if err := ctx.Dispatcher.configSet(args[2], args[3]); err != nil {
			return nil, err
		}
		return "OK", nil
	case "RESETSTAT":
		return "OK", nil
	default:
		return nil, fmt.Errorf("ERR unknown CONFIG subcommand '%s'", args[1])
	}
}

func (disp *Dispatcher) configGet(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "maxmemory":
		return strconv.FormatInt(disp.Keyspace.MaxMemoryBytes, 10), true
	case "maxmemory-policy":
		return disp.Keyspace.Policy.String(), true
	case "maxmemory-samples":
		return strconv.Itoa(disp.Keyspace.Samples), true
	case "hash-max-ziplist-entries":
		return strconv.Itoa(disp.Limits.HashMaxEntries), true
	case "hash-max-ziplist-value":
		return strconv.Itoa(disp.Limits.HashMaxValue), true
	case "list-max-ziplist-size":
		return strconv.Itoa(disp.Limits.ListMaxEntries), true
	case "set-max-intset-entries":
		return strconv.Itoa(disp.Limits.SetMaxIntset), true
	case "zset-max-ziplist-entries":
		return strconv.Itoa(disp.Limits.ZSetMaxEntries), true
	case "zset-max-ziplist-value":
		return strconv.Itoa(disp.Limits.ZSetMaxValue), true
	case "databases":
		return strconv.Itoa(disp.Keyspace.Len()), true
	case "requirepass":
		return disp.requirePass, true
	default:
		return "", false
	}
}

func (disp *Dispatcher) configSet(key, value string) error {
	switch strings.ToLower(key) {
	case "maxmemory":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return engine.ErrNotInteger
		}
		disp.Keyspace.MaxMemoryBytes = n
		return nil
	case "maxmemory-policy":
		p, ok := db.ParseEvictionPolicy(value)
		if !ok {
			return fmt.Errorf("ERR Invalid maxmemory policy")
		}
		disp.Keyspace.Policy = p
		return nil
	case "requirepass":
		disp.requirePass = value
		return nil
	default:
		return fmt.Errorf("ERR Unknown config parameter '%s'", key)
	}
}

func cmdInfo(ctx *ExecContext, args []string) (interface{}, error) {
	disp := ctx.Dispatcher
	var b strings.Builder
	fmt.Fprintf(&b, "# Server\r\nuptime_in_seconds:%d\r\n", int64(time.Since(disp.startedAt).Seconds()))
	fmt.Fprintf(&b, "# Keyspace\r\n")
	for i := 0; i < disp.Keyspace.Len(); i++ {
		n := disp.Keyspace.DB(i).Len()
		if n > 0 {
			fmt.Fprintf(&b, "db%d:keys=%d\r\n", i, n)
		}
	}
	fmt.Fprintf(&b, "# Memory\r\nused_memory:%d\r\nmaxmemory:%d\r\nmaxmemory_policy:%s\r\n",
		disp.Keyspace.UsedBytes(), disp.Keyspace.MaxMemoryBytes, disp.Keyspace.Policy.String())
	if disp.AOF != nil {
		stats := disp.AOF.GetStats()
		fmt.Fprintf(&b, "# Persistence\r\naof_enabled:%v\r\naof_last_write_status:ok\r\n", stats.Enabled)
	}
	return b.String(), nil
}

func cmdClient(ctx *ExecContext, args []string) (interface{}, error) {
	sub := strings.ToUpper(args[1])
	disp := ctx.Dispatcher
	switch sub {
	case "SETNAME":
		if len(args) != 3 {
			return nil, engine.ErrSyntax
		}
		disp.mu.Lock()
		disp.clientName[ctx.ClientID] = args[2]
		disp.mu.Unlock()
		return "OK", nil
	case "GETNAME":
		disp.mu.Lock()
		name := disp.clientName[ctx.ClientID]
		disp.mu.Unlock()
		return name, nil
	case "ID":
		return ctx.ClientID, nil
	case "LIST":
		disp.mu.Lock()
		defer disp.mu.Unlock()
		var b strings.Builder
		for id, dbIndex := range disp.clientDB {
			fmt.Fprintf(&b, "id=%d db=%d name=%s\n", id, dbIndex, disp.clientName[id])
		}
		return b.String(), nil
	default:
		return "OK", nil
	}
}

func cmdTime(ctx *ExecContext, args []string) (interface{}, error) {
	now := time.Now()
	return []interface{}{
		strconv.FormatInt(now.Unix(), 10),
		strconv.FormatInt(int64(now.Nanosecond()/1000), 10),
	}, nil
}

func cmdSlowlog(ctx *ExecContext, args []string) (interface{}, error) {
	sub := strings.ToUpper(args[1])
	switch sub {
	case "GET":
		return []interface{}{}, nil
	case "LEN":
		return int64(0), nil
	case "RESET":
		return "OK", nil
	default:
		return nil, fmt.Errorf("ERR unknown SLOWLOG subcommand '%s'", args[1])
	}
}

func cmdAuth(ctx *ExecContext, args []string) (interface{}, error) {
	disp := ctx.Dispatcher
	disp.mu.Lock()
	expected := disp.requirePass
	disp.mu.Unlock()
	if expected == "" {
		return nil, fmt.Errorf("ERR Client sent AUTH, but no password is set")
	}
	if subtle.ConstantTimeCompare([]byte(args[1]), []byte(expected)) != 1 {
		return nil, fmt.Errorf("WRONGPASS invalid username-password pair or user is disabled")
	}
	return "OK", nil
}
