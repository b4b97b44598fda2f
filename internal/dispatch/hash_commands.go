package dispatch

import (
	"strconv"

	"redis/internal/engine"
)

func registerHashCommands(register func(...Command)) {
	register(
		Command{Name: "HSET", Arity: -4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdHSet},
		Command{Name: "HSETNX", Arity: 4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdHSetNX},
		Command{Name: "HGET", Arity: 3, Flags: FlagReadOnly, Handler: cmdHGet},
		Command{Name: "HMSET", Arity: -4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdHMSet},
		Command{Name: "HMGET", Arity: -3, Flags: FlagReadOnly, Handler: cmdHMGet},
		Command{Name: "HINCRBY", Arity: 4, Flags: FlagWrite, Handler: cmdHIncrBy},
		Command{Name: "HINCRBYFLOAT", Arity: 4, Flags: FlagWrite, Handler: cmdHIncrByFloat},
		Command{Name: "HDEL", Arity: -3, Flags: FlagWrite, Handler: cmdHDel},
		Command{Name: "HLEN", Arity: 2, Flags: FlagReadOnly, Handler: cmdHLen},
		Command{Name: "HKEYS", Arity: 2, Flags: FlagReadOnly, Handler: cmdHKeys},
		Command{Name: "HVALS", Arity: 2, Flags: FlagReadOnly, Handler: cmdHVals},
		Command{Name: "HGETALL", Arity: 2, Flags: FlagReadOnly, Handler: cmdHGetAll},
		Command{Name: "HEXISTS", Arity: 3, Flags: FlagReadOnly, Handler: cmdHExists},
	)
}

func cmdHSet(ctx *ExecContext, args []string) (interface{}, error) {
	if (len(args)-2)%2 != 0 {
		return nil, engine.ErrSyntax
	}
	n, err := engine.HSet(ctx.d(), ctx.limits(), args[1], byteArgs(args[2:])...)
	return int64(n), err
}

func cmdHSetNX(ctx *ExecContext, args []string) (interface{}, error) {
	d := ctx.d()
	existing, err := engine.HGet(d, args[1], []byte(args[2]))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return int64(0), nil
	}
	if _, err := engine.HSet(d, ctx.limits(), args[1], []byte(args[2]), []byte(args[3])); err != nil {
		return nil, err
	}
	return int64(1), nil
}

func cmdHGet(ctx *ExecContext, args []string) (interface{}, error) {
	return engine.HGet(ctx.d(), args[1], []byte(args[2]))
}

func cmdHMSet(ctx *ExecContext, args []string) (interface{}, error) {
	if (len(args)-2)%2 != 0 {
		return nil, engine.ErrSyntax
	}
	if _, err := engine.HSet(ctx.d(), ctx.limits(), args[1], byteArgs(args[2:])...); err != nil {
		return nil, err
	}
	return "OK", nil
}

func cmdHMGet(ctx *ExecContext, args []string) (interface{}, error) {
	d := ctx.d()
	out := make([]interface{}, 0, len(args)-2)
	for _, field := range args[2:] {
		b, err := engine.HGet(d, args[1], []byte(field))
		if err != nil {
			out = append(out, nil)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func cmdHIncrBy(ctx *ExecContext, args []string) (interface{}, error) {
	delta, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	n, err := engine.HIncrBy(ctx.d(), ctx.limits(), args[1], []byte(args[2]), delta)
	return n, err
}

func cmdHIncrByFloat(ctx *ExecContext, args []string) (interface{}, error) {
	delta, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return nil, engine.ErrNotFloat
	}
	n, err := engine.HIncrByFloat(ctx.d(), ctx.limits(), args[1], []byte(args[2]), delta)
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatFloat(n, 'f', -1, 64)), nil
}

func cmdHDel(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.HDel(ctx.d(), args[1], byteArgs(args[2:])...)
	return int64(n), err
}

func cmdHLen(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.HLen(ctx.d(), args[1])
	return int64(n), err
}

func cmdHKeys(ctx *ExecContext, args []string) (interface{}, error) {
	fields, err := engine.HKeys(ctx.d(), args[1])
	if err != nil {
		return nil, err
	}
	return bytesToReply(fields), nil
}

func cmdHVals(ctx *ExecContext, args []string) (interface{}, error) {
	vals, err := engine.HVals(ctx.d(), args[1])
	if err != nil {
		return nil, err
	}
	return bytesToReply(vals), nil
}

func cmdHGetAll(ctx *ExecContext, args []string) (interface{}, error) {
	pairs, err := engine.HGetAll(ctx.d(), args[1])
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(pairs)*2)
	for _, p := range pairs {
		out = append(out, p[0], p[1])
	}
	return out, nil
}

func cmdHExists(ctx *ExecContext, args []string) (interface{}, error) {
	ok, err := engine.HExists(ctx.d(), args[1], []byte(args[2]))
	return boolReply(ok), err
}
