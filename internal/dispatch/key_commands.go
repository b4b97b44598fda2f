package dispatch

import (
	"strconv"
	"strings"

	"redis/internal/engine"
	"redis/internal/storage"
)

func registerKeyCommands(register func(...Command)) {
	register(
		Command{Name: "DEL", Arity: -2, Flags: FlagWrite, Handler: cmdDel},
		Command{Name: "UNLINK", Arity: -2, Flags: FlagWrite, Handler: cmdDel},
		Command{Name: "EXISTS", Arity: -2, Flags: FlagReadOnly, Handler: cmdExists},
		Command{Name: "EXPIRE", Arity: 3, Flags: FlagWrite, Handler: cmdExpire},
		Command{Name: "PEXPIRE", Arity: 3, Flags: FlagWrite, Handler: cmdPExpire},
		Command{Name: "EXPIREAT", Arity: 3, Flags: FlagWrite, Handler: cmdExpireAt},
		Command{Name: "PEXPIREAT", Arity: 3, Flags: FlagWrite, Handler: cmdPExpireAt},
		Command{Name: "TTL", Arity: 2, Flags: FlagReadOnly, Handler: cmdTTL},
		Command{Name: "PTTL", Arity: 2, Flags: FlagReadOnly, Handler: cmdPTTL},
		Command{Name: "PERSIST", Arity: 2, Flags: FlagWrite, Handler: cmdPersist},
		Command{Name: "TYPE", Arity: 2, Flags: FlagReadOnly, Handler: cmdType},
		Command{Name: "RANDOMKEY", Arity: 1, Flags: FlagReadOnly, Handler: cmdRandomKey},
		Command{Name: "KEYS", Arity: 2, Flags: FlagReadOnly, Handler: cmdKeys},
		Command{Name: "RENAME", Arity: 3, Flags: FlagWrite, Handler: cmdRename},
		Command{Name: "RENAMENX", Arity: 3, Flags: FlagWrite, Handler: cmdRenameNX},
		Command{Name: "DBSIZE", Arity: 1, Flags: FlagReadOnly, Handler: cmdDBSize},
		Command{Name: "MOVE", Arity: 3, Flags: FlagWrite, Handler: cmdMove},
		Command{Name: "SELECT", Arity: 2, Flags: FlagAllowedWhileLoading, Handler: cmdSelect},
		Command{Name: "FLUSHDB", Arity: 1, Flags: FlagWrite, Handler: cmdFlushDB},
		Command{Name: "FLUSHALL", Arity: 1, Flags: FlagWrite, Handler: cmdFlushAll},
		Command{Name: "OBJECT", Arity: -2, Flags: FlagReadOnly, Handler: cmdObject},
	)
}

func cmdDel(ctx *ExecContext, args []string) (interface{}, error) {
	d := ctx.d()
	var n int64
	for _, key := range args[1:] {
		if d.Delete(key) {
			n++
		}
	}
	return n, nil
}

func cmdExists(ctx *ExecContext, args []string) (interface{}, error) {
	d := ctx.d()
	var n int64
	for _, key := range args[1:] {
		if d.Exists(key) {
			n++
		}
	}
	return n, nil
}

func cmdExpire(ctx *ExecContext, args []string) (interface{}, error) {
	seconds, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	deadline := nowMillis() + seconds*1000
	return boolReply(ctx.d().SetExpireAt(args[1], deadline)), nil
}

func cmdPExpire(ctx *ExecContext, args []string) (interface{}, error) {
	millis, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	deadline := nowMillis() + millis
	return boolReply(ctx.d().SetExpireAt(args[1], deadline)), nil
}

func cmdExpireAt(ctx *ExecContext, args []string) (interface{}, error) {
	seconds, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	return boolReply(ctx.d().SetExpireAt(args[1], seconds*1000)), nil
}

func cmdPExpireAt(ctx *ExecContext, args []string) (interface{}, error) {
	millis, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	return boolReply(ctx.d().SetExpireAt(args[1], millis)), nil
}

func cmdTTL(ctx *ExecContext, args []string) (interface{}, error) {
	ms := ctx.d().TTLMillis(args[1])
	if ms < 0 {
		return ms, nil
	}
	return ms / 1000, nil
}

func cmdPTTL(ctx *ExecContext, args []string) (interface{}, error) {
	return ctx.d().TTLMillis(args[1]), nil
}

func cmdPersist(ctx *ExecContext, args []string) (interface{}, error) {
	return boolReply(ctx.d().Persist(args[1])), nil
}

func cmdType(ctx *ExecContext, args []string) (interface{}, error) {
	v, ok := ctx.d().Lookup(args[1])
	if !ok {
		return "none", nil
	}
	return v.Kind.String(), nil
}

func cmdRandomKey(ctx *ExecContext, args []string) (interface{}, error) {
	key, ok := ctx.d().RandomKey()
	if !ok {
		return nil, nil
	}
	return key, nil
}

func cmdKeys(ctx *ExecContext, args []string) (interface{}, error) {
	pattern := args[1]
	d := ctx.d()
	var out []interface{}
	for _, key := range d.Keys() {
		if globMatch(pattern, key) {
			out = append(out, key)
		}
	}
	return out, nil
}

func cmdRename(ctx *ExecContext, args []string) (interface{}, error) {
	if !ctx.d().Rename(args[1], args[2]) {
		return nil, engine.ErrNoSuchKey
	}
	return "OK", nil
}

func cmdRenameNX(ctx *ExecContext, args []string) (interface{}, error) {
	d := ctx.d()
	if !d.Exists(args[1]) {
		return nil, engine.ErrNoSuchKey
	}
	if d.Exists(args[2]) {
		return int64(0), nil
	}
	d.Rename(args[1], args[2])
	return int64(1), nil
}

func cmdDBSize(ctx *ExecContext, args []string) (interface{}, error) {
	return int64(ctx.d().Len()), nil
}

func cmdMove(ctx *ExecContext, args []string) (interface{}, error) {
	destIndex, err := strconv.Atoi(args[2])
	if err != nil || destIndex < 0 || destIndex >= ctx.Keyspace.Len() {
		return nil, engine.ErrIndexOutOfRange
	}
	if destIndex == ctx.DBIndex {
		return nil, engine.ErrSyntax
	}
	src := ctx.d()
	dst := ctx.Keyspace.DB(destIndex)
	v, ok := src.Lookup(args[1])
	if !ok {
		return int64(0), nil
	}
	if dst.Exists(args[1]) {
		return int64(0), nil
	}
	deadline, hasTTL := src.ExpireAt(args[1])
	dst.Set(args[1], v)
	if hasTTL {
		dst.SetExpireAt(args[1], deadline)
	}
	src.Delete(args[1])
	return int64(1), nil
}

func cmdSelect(ctx *ExecContext, args []string) (interface{}, error) {
	index, err := strconv.Atoi(args[1])
	if err != nil || index < 0 || index >= ctx.Keyspace.Len() {
		return nil, engine.ErrIndexOutOfRange
	}
	if err := ctx.selectDB(index); err != nil {
		return nil, err
	}
	return "OK", nil
}

func cmdFlushDB(ctx *ExecContext, args []string) (interface{}, error) {
	ctx.d().Flush()
	return "OK", nil
}

func cmdFlushAll(ctx *ExecContext, args []string) (interface{}, error) {
	for i := 0; i < ctx.Keyspace.Len(); i++ {
		ctx.Keyspace.DB(i).Flush()
	}
	return "OK", nil
}

func cmdObject(ctx *ExecContext, args []string) (interface{}, error) {
	if len(args) != 3 {
		return nil, engine.ErrSyntax
	}
	sub := strings.ToUpper(args[1])
	key := args[2]
	d := ctx.d()
	v, ok := d.Lookup(key)
	if !ok {
		return nil, engine.ErrNoSuchKey
	}
	switch sub {
	case "REFCOUNT":
		return int64(1), nil
	case "ENCODING":
		return v.Encoding.String(), nil
	case "IDLETIME":
		age := storage.CurrentLRUTick() - v.LRUTick
		return int64(age) * 10, nil
	default:
		return nil, engine.ErrSyntax
	}
}

func boolReply(ok bool) int64 {
	if ok {
		return 1
	}
	return 0
}
