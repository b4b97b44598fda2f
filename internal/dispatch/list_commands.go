package dispatch

import (
	"strconv"
	"strings"
	"time"

	"redis/internal/engine"
)

func registerListCommands(register func(...Command)) {
	register(
		Command{Name: "LPUSH", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdLPush},
		Command{Name: "RPUSH", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdRPush},
		Command{Name: "LPUSHX", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdLPushX},
		Command{Name: "RPUSHX", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdRPushX},
		Command{Name: "LPOP", Arity: -2, Flags: FlagWrite, Handler: cmdLPop},
		Command{Name: "RPOP", Arity: -2, Flags: FlagWrite, Handler: cmdRPop},
		Command{Name: "LINDEX", Arity: 3, Flags: FlagReadOnly, Handler: cmdLIndex},
		Command{Name: "LLEN", Arity: 2, Flags: FlagReadOnly, Handler: cmdLLen},
		Command{Name: "LRANGE", Arity: 4, Flags: FlagReadOnly, Handler: cmdLRange},
		Command{Name: "LSET", Arity: 4, Flags: FlagWrite, Handler: cmdLSet},
		Command{Name: "LTRIM", Arity: 4, Flags: FlagWrite, Handler: cmdLTrim},
		Command{Name: "LREM", Arity: 4, Flags: FlagWrite, Handler: cmdLRem},
		Command{Name: "LINSERT", Arity: 5, Flags: FlagWrite | FlagDenyOOM, Handler: cmdLInsert},
		Command{Name: "RPOPLPUSH", Arity: 3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdRPopLPush},
		Command{Name: "BLPOP", Arity: -3, Flags: FlagWrite, Handler: cmdBLPop},
		Command{Name: "BRPOP", Arity: -3, Flags: FlagWrite, Handler: cmdBRPop},
		Command{Name: "BRPOPLPUSH", Arity: 4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdBRPopLPush},
	)
}

func cmdLPush(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.LPush(ctx.d(), ctx.limits(), args[1], byteArgs(args[2:])...)
	return int64(n), err
}

func cmdRPush(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.RPush(ctx.d(), ctx.limits(), args[1], byteArgs(args[2:])...)
	return int64(n), err
}

func cmdLPushX(ctx *ExecContext, args []string) (interface{}, error) {
	if !ctx.d().Exists(args[1]) {
		return int64(0), nil
	}
	n, err := engine.LPush(ctx.d(), ctx.limits(), args[1], byteArgs(args[2:])...)
	return int64(n), err
}

func cmdRPushX(ctx *ExecContext, args []string) (interface{}, error) {
	if !ctx.d().Exists(args[1]) {
		return int64(0), nil
	}
	n, err := engine.RPush(ctx.d(), ctx.limits(), args[1], byteArgs(args[2:])...)
	return int64(n), err
}

func parsePopCount(args []string) (int, error) {
	if len(args) < 3 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[2])
	if err != nil || n < 0 {
		return 0, engine.ErrNotInteger
	}
	return n, nil
}

func cmdLPop(ctx *ExecContext, args []string) (interface{}, error) {
	count, err := parsePopCount(args)
	if err != nil {
		return nil, err
	}
	explicit := len(args) >= 3
	popped, err := engine.LPop(ctx.d(), args[1], count)
	if err != nil {
		return nil, err
	}
	return popReply(popped, explicit), nil
}

func cmdRPop(ctx *ExecContext, args []string) (interface{}, error) {
	count, err := parsePopCount(args)
	if err != nil {
		return nil, err
	}
	explicit := len(args) >= 3
	popped, err := engine.RPop(ctx.d(), args[1], count)
	if err != nil {
		return nil, err
	}
	return popReply(popped, explicit), nil
}

// popReply mirrors LPOP/RPOP's dual reply shape: a bare bulk string (or nil)
// when no explicit count was given, an array when one was.
func popReply(popped [][]byte, explicit bool) interface{} {
	if !explicit {
		if len(popped) == 0 {
			return nil
		}
		return popped[0]
	}
	out := make([]interface{}, len(popped))
	for i, b := range popped {
		out[i] = b
	}
	return out
}

func cmdLIndex(ctx *ExecContext, args []string) (interface{}, error) {
	index, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	b, err := engine.LIndex(ctx.d(), args[1], index)
	return b, err
}

func cmdLLen(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.LLen(ctx.d(), args[1])
	return int64(n), err
}

func cmdLRange(ctx *ExecContext, args []string) (interface{}, error) {
	start, err1 := strconv.Atoi(args[2])
	stop, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil {
		return nil, engine.ErrNotInteger
	}
	items, err := engine.LRange(ctx.d(), args[1], start, stop)
	if err != nil {
		return nil, err
	}
	return bytesToReply(items), nil
}

func cmdLSet(ctx *ExecContext, args []string) (interface{}, error) {
	index, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	if err := engine.LSet(ctx.d(), ctx.limits(), args[1], index, []byte(args[3])); err != nil {
		return nil, err
	}
	return "OK", nil
}

func cmdLTrim(ctx *ExecContext, args []string) (interface{}, error) {
	start, err1 := strconv.Atoi(args[2])
	stop, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil {
		return nil, engine.ErrNotInteger
	}
	if err := engine.LTrim(ctx.d(), args[1], start, stop); err != nil {
		return nil, err
	}
	return "OK", nil
}

func cmdLRem(ctx *ExecContext, args []string) (interface{}, error) {
	count, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	n, err := engine.LRem(ctx.d(), args[1], count, []byte(args[3]))
	return int64(n), err
}

func cmdLInsert(ctx *ExecContext, args []string) (interface{}, error) {
	var before bool
	switch strings.ToUpper(args[2]) {
	case "BEFORE":
		before = true
	case "AFTER":
		before = false
	default:
		return nil, engine.ErrSyntax
	}
	n, err := engine.LInsert(ctx.d(), ctx.limits(), args[1], before, []byte(args[3]), []byte(args[4]))
	return int64(n), err
}

func cmdRPopLPush(ctx *ExecContext, args []string) (interface{}, error) {
	b, err := engine.RPopLPush(ctx.d(), ctx.limits(), args[1], args[2])
	return b, err
}

// parseTimeoutSeconds parses a BLPOP-family timeout: 0 means block forever
// (capped to a generous ceiling here since Execute has no cooperative
// cancellation channel to honor an unbounded block), anything else is a
// float number of seconds.
func parseTimeoutSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, engine.ErrNotFloat
	}
	if f == 0 {
		return 24 * time.Hour, nil
	}
	return time.Duration(f * float64(time.Second)), nil
}

const blockPollInterval = 20 * time.Millisecond

func cmdBLPop(ctx *ExecContext, args []string) (interface{}, error) {
	return blockingPop(ctx, args, true)
}

func cmdBRPop(ctx *ExecContext, args []string) (interface{}, error) {
	return blockingPop(ctx, args, false)
}

func blockingPop(ctx *ExecContext, args []string, head bool) (interface{}, error) {
	keys := args[1 : len(args)-1]
	timeout, err := parseTimeoutSeconds(args[len(args)-1])
	if err != nil {
		return nil, err
	}
	d := ctx.d()
	deadline := time.Now().Add(timeout)
	for {
		for _, key := range keys {
			var popped [][]byte
			var err error
			if head {
				popped, err = engine.LPop(d, key, 1)
			} else {
				popped, err = engine.RPop(d, key, 1)
			}
			if err != nil {
				return nil, err
			}
			if len(popped) > 0 {
				return []interface{}{key, popped[0]}, nil
			}
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		time.Sleep(blockPollInterval)
	}
}

func cmdBRPopLPush(ctx *ExecContext, args []string) (interface{}, error) {
	src, dst := args[1], args[2]
	timeout, err := parseTimeoutSeconds(args[3])
	if err != nil {
		return nil, err
	}
	d := ctx.d()
	deadline := time.Now().Add(timeout)
	for {
		b, err := engine.RPopLPush(d, ctx.limits(), src, dst)
		if err != nil {
			return nil, err
		}
		if b != nil {
			return b, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		time.Sleep(blockPollInterval)
	}
}

func byteArgs(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func bytesToReply(items [][]byte) []interface{} {
	out := make([]interface{}, len(items))
	for i, b := range items {
		out[i] = b
	}
	return out
}
