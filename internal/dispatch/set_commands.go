package dispatch

import (
	"strconv"

	"redis/internal/engine"
)

func registerSetCommands(register func(...Command)) {
	register(
		Command{Name: "SADD", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSAdd},
		Command{Name: "SREM", Arity: -3, Flags: FlagWrite, Handler: cmdSRem},
		Command{Name: "SMOVE", Arity: 4, Flags: FlagWrite, Handler: cmdSMove},
		Command{Name: "SISMEMBER", Arity: 3, Flags: FlagReadOnly, Handler: cmdSIsMember},
		Command{Name: "SCARD", Arity: 2, Flags: FlagReadOnly, Handler: cmdSCard},
		Command{Name: "SPOP", Arity: -2, Flags: FlagWrite, Handler: cmdSPop},
		Command{Name: "SRANDMEMBER", Arity: -2, Flags: FlagReadOnly, Handler: cmdSRandMember},
		Command{Name: "SMEMBERS", Arity: 2, Flags: FlagReadOnly, Handler: cmdSMembers},
		Command{Name: "SINTER", Arity: -2, Flags: FlagReadOnly, Handler: cmdSInter},
		Command{Name: "SUNION", Arity: -2, Flags: FlagReadOnly, Handler: cmdSUnion},
		Command{Name: "SDIFF", Arity: -2, Flags: FlagReadOnly, Handler: cmdSDiff},
		Command{Name: "SINTERSTORE", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSInterStore},
		Command{Name: "SUNIONSTORE", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSUnionStore},
		Command{Name: "SDIFFSTORE", Arity: -3, Flags: FlagWrite | FlagDenyOOM, Handler: cmdSDiffStore},
	)
}

func cmdSAdd(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.SAdd(ctx.d(), ctx.limits(), args[1], byteArgs(args[2:])...)
	return int64(n), err
}

func cmdSRem(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.SRem(ctx.d(), args[1], byteArgs(args[2:])...)
	return int64(n), err
}

func cmdSMove(ctx *ExecContext, args []string) (interface{}, error) {
	ok, err := engine.SMove(ctx.d(), ctx.limits(), args[1], args[2], []byte(args[3]))
	return boolReply(ok), err
}

func cmdSIsMember(ctx *ExecContext, args []string) (interface{}, error) {
	ok, err := engine.SIsMember(ctx.d(), args[1], []byte(args[2]))
	return boolReply(ok), err
}

func cmdSCard(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.SCard(ctx.d(), args[1])
	return int64(n), err
}

func cmdSPop(ctx *ExecContext, args []string) (interface{}, error) {
	count, err := parsePopCount(args)
	if err != nil {
		return nil, err
	}
	explicit := len(args) >= 3
	popped, err := engine.SPop(ctx.d(), args[1], count)
	if err != nil {
		return nil, err
	}
	return popReply(popped, explicit), nil
}

func cmdSRandMember(ctx *ExecContext, args []string) (interface{}, error) {
	count := 1
	explicit := false
	if len(args) >= 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, engine.ErrNotInteger
		}
		count = n
		explicit = true
	}
	members, err := engine.SRandMember(ctx.d(), args[1], count)
	if err != nil {
		return nil, err
	}
	if !explicit {
		if len(members) == 0 {
			return nil, nil
		}
		return members[0], nil
	}
	return bytesToReply(members), nil
}

func cmdSMembers(ctx *ExecContext, args []string) (interface{}, error) {
	members, err := engine.SMembers(ctx.d(), args[1])
	if err != nil {
		return nil, err
	}
	return bytesToReply(members), nil
}

func cmdSInter(ctx *ExecContext, args []string) (interface{}, error) {
	members, err := engine.SInter(ctx.d(), args[1:])
	if err != nil {
		return nil, err
	}
	return bytesToReply(members), nil
}

func cmdSUnion(ctx *ExecContext, args []string) (interface{}, error) {
	members, err := engine.SUnion(ctx.d(), args[1:])
	if err != nil {
		return nil, err
	}
	return bytesToReply(members), nil
}

func cmdSDiff(ctx *ExecContext, args []string) (interface{}, error) {
	members, err := engine.SDiff(ctx.d(), args[1:])
	if err != nil {
		return nil, err
	}
	return bytesToReply(members), nil
}

func cmdSInterStore(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.SInterStore(ctx.d(), ctx.limits(), args[1], args[2:])
	return int64(n), err
}

func cmdSUnionStore(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.SUnionStore(ctx.d(), ctx.limits(), args[1], args[2:])
	return int64(n), err
}

func cmdSDiffStore(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.SDiffStore(ctx.d(), ctx.limits(), args[1], args[2:])
	return int64(n), err
}
