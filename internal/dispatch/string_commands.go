package dispatch

import (
	"strconv"
	"strings"
	"time"

	"redis/internal/engine"
)

func registerStringCommands(register func(...Command)) {
	register(
		Command{Name: "GET", Arity: 2, Flags: FlagReadOnly, Handler: cmdGet},
		Command{Name: "SET", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSet},
		Command{Name: "SETNX", Arity: 3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSetNX},
		Command{Name: "SETEX", Arity: 4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSetEX},
		Command{Name: "PSETEX", Arity: 4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdPSetEX},
		Command{Name: "APPEND", Arity: 3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdAppend},
		Command{Name: "STRLEN", Arity: 2, Flags: FlagReadOnly, Handler: cmdStrLen},
		Command{Name: "INCR", Arity: 2, Flags: FlagWrite, Handler: cmdIncr},
		Command{Name: "DECR", Arity: 2, Flags: FlagWrite, Handler: cmdDecr},
		Command{Name: "INCRBY", Arity: 3, Flags: FlagWrite, Handler: cmdIncrBy},
		Command{Name: "DECRBY", Arity: 3, Flags: FlagWrite, Handler: cmdDecrBy},
		Command{Name: "INCRBYFLOAT", Arity: 3, Flags: FlagWrite, Handler: cmdIncrByFloat},
		Command{Name: "MGET", Arity: -2, Flags: FlagReadOnly, Handler: cmdMGet},
		Command{Name: "MSET", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdMSet},
		Command{Name: "MSETNX", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdMSetNX},
		Command{Name: "GETSET", Arity: 3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdGetSet},
		Command{Name: "GETRANGE", Arity: 4, Flags: FlagReadOnly, Handler: cmdGetRange},
		Command{Name: "SETRANGE", Arity: 4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSetRange},
		Command{Name: "GETBIT", Arity: 3, Flags: FlagReadOnly, Handler: cmdGetBit},
		Command{Name: "SETBIT", Arity: 4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSetBit},
		Command{Name: "BITCOUNT", Arity: -2, Flags: FlagReadOnly, Handler: cmdBitCount},
		Command{Name: "BITOP", Arity: -4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdBitOp},
	)
}

func cmdGet(ctx *ExecContext, args []string) (interface{}, error) {
	return engine.Get(ctx.d(), args[1])
}

func cmdSet(ctx *ExecContext, args []string) (interface{}, error) {
	key, value := args[1], []byte(args[2])
	var deadlineMs int64
	hasDeadline := false
	nx, xx, get, keepTTL := false, false, false, false
	for i := 3; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GET":
			get = true
		case "EX", "PX", "EXAT", "PXAT":
			opt := strings.ToUpper(args[i])
			i++
			if i >= len(args) {
				return nil, engine.ErrSyntax
			}
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return nil, engine.ErrNotInteger
			}
			switch opt {
			case "EX":
				deadlineMs = time.Now().UnixMilli() + n*1000
			case "PX":
				deadlineMs = time.Now().UnixMilli() + n
			case "EXAT":
				deadlineMs = n * 1000
			case "PXAT":
				deadlineMs = n
			}
			hasDeadline = true
		case "KEEPTTL":
			// the existing deadline is re-applied after the overwrite below
			keepTTL = true
		default:
			return nil, engine.ErrSyntax
		}
	}
	d := ctx.d()
	existed := d.Exists(key)
	var prior []byte
	if get {
		b, err := engine.Get(d, key)
		if err != nil {
			return nil, err
		}
		prior = b
	}
	if nx && existed {
		if get {
			return prior, nil
		}
		return nil, nil
	}
	if xx && !existed {
		if get {
			return prior, nil
		}
		return nil, nil
	}
	if hasDeadline {
		engine.SetWithExpireAt(d, key, value, deadlineMs)
	} else if prevDeadline, hasTTL := d.ExpireAt(key); keepTTL && hasTTL {
		engine.SetWithExpireAt(d, key, value, prevDeadline)
	} else {
		engine.Set(d, key, value)
	}
	if get {
		return prior, nil
	}
	return "OK", nil
}

func cmdSetNX(ctx *ExecContext, args []string) (interface{}, error) {
	d := ctx.d()
	if d.Exists(args[1]) {
		return int64(0), nil
	}
	engine.Set(d, args[1], []byte(args[2]))
	return int64(1), nil
}

func cmdSetEX(ctx *ExecContext, args []string) (interface{}, error) {
	seconds, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || seconds <= 0 {
		return nil, engine.ErrNotInteger
	}
	engine.SetWithExpireAt(ctx.d(), args[1], []byte(args[3]), time.Now().UnixMilli()+seconds*1000)
	return "OK", nil
}

func cmdPSetEX(ctx *ExecContext, args []string) (interface{}, error) {
	millis, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || millis <= 0 {
		return nil, engine.ErrNotInteger
	}
	engine.SetWithExpireAt(ctx.d(), args[1], []byte(args[3]), time.Now().UnixMilli()+millis)
	return "OK", nil
}

func cmdAppend(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.Append(ctx.d(), args[1], []byte(args[2]))
	return int64(n), err
}

func cmdStrLen(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.StrLen(ctx.d(), args[1])
	return int64(n), err
}

func cmdIncr(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.IncrBy(ctx.d(), args[1], 1)
	return n, err
}

func cmdDecr(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.IncrBy(ctx.d(), args[1], -1)
	return n, err
}

func cmdIncrBy(ctx *ExecContext, args []string) (interface{}, error) {
	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	n, err := engine.IncrBy(ctx.d(), args[1], delta)
	return n, err
}

func cmdDecrBy(ctx *ExecContext, args []string) (interface{}, error) {
	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	n, err := engine.IncrBy(ctx.d(), args[1], -delta)
	return n, err
}

func cmdIncrByFloat(ctx *ExecContext, args []string) (interface{}, error) {
	delta, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, engine.ErrNotFloat
	}
	n, err := engine.IncrByFloat(ctx.d(), args[1], delta)
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatFloat(n, 'f', -1, 64)), nil
}

func cmdMGet(ctx *ExecContext, args []string) (interface{}, error) {
	d := ctx.d()
	out := make([]interface{}, 0, len(args)-1)
	for _, key := range args[1:] {
		b, err := engine.Get(d, key)
		if err != nil {
			out = append(out, nil)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func cmdMSet(ctx *ExecContext, args []string) (interface{}, error) {
	if (len(args)-1)%2 != 0 {
		return nil, engine.ErrSyntax
	}
	d := ctx.d()
	for i := 1; i < len(args); i += 2 {
		engine.Set(d, args[i], []byte(args[i+1]))
	}
	return "OK", nil
}

func cmdMSetNX(ctx *ExecContext, args []string) (interface{}, error) {
	if (len(args)-1)%2 != 0 {
		return nil, engine.ErrSyntax
	}
	d := ctx.d()
	for i := 1; i < len(args); i += 2 {
		if d.Exists(args[i]) {
			return int64(0), nil
		}
	}
	for i := 1; i < len(args); i += 2 {
		engine.Set(d, args[i], []byte(args[i+1]))
	}
	return int64(1), nil
}

func cmdGetSet(ctx *ExecContext, args []string) (interface{}, error) {
	d := ctx.d()
	prior, err := engine.Get(d, args[1])
	if err != nil {
		return nil, err
	}
	engine.Set(d, args[1], []byte(args[2]))
	return prior, nil
}

func cmdGetRange(ctx *ExecContext, args []string) (interface{}, error) {
	start, err1 := strconv.Atoi(args[2])
	end, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil {
		return nil, engine.ErrNotInteger
	}
	b, err := engine.GetRange(ctx.d(), args[1], start, end)
	return b, err
}

func cmdSetRange(ctx *ExecContext, args []string) (interface{}, error) {
	offset, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	n, err := engine.SetRange(ctx.d(), args[1], offset, []byte(args[3]))
	return int64(n), err
}

func cmdGetBit(ctx *ExecContext, args []string) (interface{}, error) {
	offset, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	n, err := engine.GetBit(ctx.d(), args[1], offset)
	return int64(n), err
}

func cmdSetBit(ctx *ExecContext, args []string) (interface{}, error) {
	offset, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	bit, err := strconv.Atoi(args[3])
	if err != nil {
		return nil, engine.ErrNotInteger
	}
	n, err := engine.SetBit(ctx.d(), args[1], offset, bit)
	return int64(n), err
}

func cmdBitCount(ctx *ExecContext, args []string) (interface{}, error) {
	hasRange := len(args) > 2
	var start, end int
	if hasRange {
		if len(args) != 4 {
			return nil, engine.ErrSyntax
		}
		var err1, err2 error
		start, err1 = strconv.Atoi(args[2])
		end, err2 = strconv.Atoi(args[3])
		if err1 != nil || err2 != nil {
			return nil, engine.ErrNotInteger
		}
	}
	n, err := engine.BitCount(ctx.d(), args[1], hasRange, start, end)
	return int64(n), err
}

func cmdBitOp(ctx *ExecContext, args []string) (interface{}, error) {
	var op engine.BitOpKind
	switch strings.ToUpper(args[1]) {
	case "AND":
		op = engine.BitOpAnd
	case "OR":
		op = engine.BitOpOr
	case "XOR":
		op = engine.BitOpXor
	case "NOT":
		op = engine.BitOpNot
	default:
		return nil, engine.ErrSyntax
	}
	n, err := engine.BitOp(ctx.d(), op, args[2], args[3:])
	return int64(n), err
}
