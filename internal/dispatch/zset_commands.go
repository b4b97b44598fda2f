package dispatch

import (
	"math"
	"strconv"
	"strings"

	"redis/internal/engine"
	"redis/internal/storage"
)

func registerZSetCommands(register func(...Command)) {
	register(
		Command{Name: "ZADD", Arity: -4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdZAdd},
		Command{Name: "ZINCRBY", Arity: 4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdZIncrBy},
		Command{Name: "ZREM", Arity: -3, Flags: FlagWrite, Handler: cmdZRem},
		Command{Name: "ZRANGE", Arity: -4, Flags: FlagReadOnly, Handler: cmdZRange},
		Command{Name: "ZREVRANGE", Arity: -4, Flags: FlagReadOnly, Handler: cmdZRevRange},
		Command{Name: "ZRANGEBYSCORE", Arity: -4, Flags: FlagReadOnly, Handler: cmdZRangeByScore},
		Command{Name: "ZREVRANGEBYSCORE", Arity: -4, Flags: FlagReadOnly, Handler: cmdZRevRangeByScore},
		Command{Name: "ZCOUNT", Arity: 4, Flags: FlagReadOnly, Handler: cmdZCount},
		Command{Name: "ZCARD", Arity: 2, Flags: FlagReadOnly, Handler: cmdZCard},
		Command{Name: "ZSCORE", Arity: 3, Flags: FlagReadOnly, Handler: cmdZScore},
		Command{Name: "ZRANK", Arity: 3, Flags: FlagReadOnly, Handler: cmdZRank},
		Command{Name: "ZREVRANK", Arity: 3, Flags: FlagReadOnly, Handler: cmdZRevRank},
		Command{Name: "ZREMRANGEBYSCORE", Arity: 4, Flags: FlagWrite, Handler: cmdZRemRangeByScore},
		Command{Name: "ZREMRANGEBYRANK", Arity: 4, Flags: FlagWrite, Handler: cmdZRemRangeByRank},
		Command{Name: "ZUNIONSTORE", Arity: -4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdZUnionStore},
		Command{Name: "ZINTERSTORE", Arity: -4, Flags: FlagWrite | FlagDenyOOM, Handler: cmdZInterStore},
	)
}

func parseScore(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "+inf", "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, engine.ErrNotFloat
	}
	return f, nil
}

func cmdZAdd(ctx *ExecContext, args []string) (interface{}, error) {
	rest := args[2:]
	if (len(rest))%2 != 0 {
		return nil, engine.ErrSyntax
	}
	members := make([]storage.ZSetMember, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		score, err := parseScore(rest[i])
		if err != nil {
			return nil, err
		}
		members = append(members, storage.ZSetMember{Member: rest[i+1], Score: score})
	}
	n, err := engine.ZAdd(ctx.d(), ctx.limits(), args[1], members)
	return int64(n), err
}

func cmdZIncrBy(ctx *ExecContext, args []string) (interface{}, error) {
	delta, err := parseScore(args[2])
	if err != nil {
		return nil, err
	}
	n, err := engine.ZIncrBy(ctx.d(), ctx.limits(), args[1], args[3], delta)
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatFloat(n, 'f', -1, 64)), nil
}

func cmdZRem(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.ZRem(ctx.d(), args[1], args[2:])
	return int64(n), err
}

func membersReply(members []storage.ZSetMember, withScores bool) []interface{} {
	if !withScores {
		out := make([]interface{}, len(members))
		for i, m := range members {
			out[i] = []byte(m.Member)
		}
		return out
	}
	out := make([]interface{}, 0, len(members)*2)
	for _, m := range members {
		out = append(out, []byte(m.Member), []byte(strconv.FormatFloat(m.Score, 'f', -1, 64)))
	}
	return out
}

func hasWithScores(args []string) bool {
	for _, a := range args {
		if strings.EqualFold(a, "WITHSCORES") {
			return true
		}
	}
	return false
}

func cmdZRange(ctx *ExecContext, args []string) (interface{}, error) {
	return zRangeByRank(ctx, args, false)
}

func cmdZRevRange(ctx *ExecContext, args []string) (interface{}, error) {
	return zRangeByRank(ctx, args, true)
}

func zRangeByRank(ctx *ExecContext, args []string, reverse bool) (interface{}, error) {
	start, err1 := strconv.Atoi(args[2])
	stop, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil {
		return nil, engine.ErrNotInteger
	}
	members, err := engine.ZRange(ctx.d(), args[1], start, stop, reverse)
	if err != nil {
		return nil, err
	}
	return membersReply(members, hasWithScores(args[4:])), nil
}

// parseScoreBound parses a single ZRANGEBYSCORE-family bound, where a
// leading '(' marks it as open (exclusive).
func parseScoreBound(s string) (score float64, exclusive bool, err error) {
	exclusive = strings.HasPrefix(s, "(")
	score, err = parseScore(strings.TrimPrefix(s, "("))
	return
}

// parseScoreRangeArgs parses a ZRANGEBYSCORE-family min/max pair, where a
// leading '(' marks an open (exclusive) endpoint, and LIMIT offset count.
func parseScoreRangeArgs(args []string) (min, max float64, minExclusive, maxExclusive bool, offset, count int, err error) {
	min, minExclusive, err = parseScoreBound(args[2])
	if err != nil {
		return
	}
	max, maxExclusive, err = parseScoreBound(args[3])
	if err != nil {
		return
	}
	offset, count = 0, -1
	for i := 4; i < len(args); i++ {
		if strings.EqualFold(args[i], "LIMIT") && i+2 < len(args) {
			offset, err = strconv.Atoi(args[i+1])
			if err != nil {
				return
			}
			count, err = strconv.Atoi(args[i+2])
			if err != nil {
				return
			}
			i += 2
		}
	}
	return
}

func cmdZRangeByScore(ctx *ExecContext, args []string) (interface{}, error) {
	min, max, minExclusive, maxExclusive, offset, count, err := parseScoreRangeArgs(args)
	if err != nil {
		return nil, err
	}
	members, err := engine.ZRangeByScore(ctx.d(), args[1], min, max, offset, count, false, minExclusive, maxExclusive)
	if err != nil {
		return nil, err
	}
	return membersReply(members, hasWithScores(args)), nil
}

func cmdZRevRangeByScore(ctx *ExecContext, args []string) (interface{}, error) {
	// ZREVRANGEBYSCORE takes max before min.
	max, min, maxExclusive, minExclusive, offset, count, err := parseScoreRangeArgs(args)
	if err != nil {
		return nil, err
	}
	members, err := engine.ZRangeByScore(ctx.d(), args[1], min, max, offset, count, true, minExclusive, maxExclusive)
	if err != nil {
		return nil, err
	}
	return membersReply(members, hasWithScores(args)), nil
}

func cmdZCount(ctx *ExecContext, args []string) (interface{}, error) {
	min, minExclusive, err1 := parseScoreBound(args[2])
	max, maxExclusive, err2 := parseScoreBound(args[3])
	if err1 != nil || err2 != nil {
		return nil, engine.ErrNotFloat
	}
	n, err := engine.ZCount(ctx.d(), args[1], min, max, minExclusive, maxExclusive)
	return int64(n), err
}

func cmdZCard(ctx *ExecContext, args []string) (interface{}, error) {
	n, err := engine.ZCard(ctx.d(), args[1])
	return int64(n), err
}

func cmdZScore(ctx *ExecContext, args []string) (interface{}, error) {
	score, ok, err := engine.ZScore(ctx.d(), args[1], args[2])
	if err != nil || !ok {
		return nil, err
	}
	return []byte(strconv.FormatFloat(score, 'f', -1, 64)), nil
}

func cmdZRank(ctx *ExecContext, args []string) (interface{}, error) {
	rank, err := engine.ZRank(ctx.d(), args[1], args[2])
	if err != nil || rank < 0 {
		return nil, err
	}
	return int64(rank), nil
}

func cmdZRevRank(ctx *ExecContext, args []string) (interface{}, error) {
	rank, err := engine.ZRevRank(ctx.d(), args[1], args[2])
	if err != nil || rank < 0 {
		return nil, err
	}
	return int64(rank), nil
}

func cmdZRemRangeByScore(ctx *ExecContext, args []string) (interface{}, error) {
	min, minExclusive, err1 := parseScoreBound(args[2])
	max, maxExclusive, err2 := parseScoreBound(args[3])
	if err1 != nil || err2 != nil {
		return nil, engine.ErrNotFloat
	}
	n, err := engine.ZRemRangeByScore(ctx.d(), args[1], min, max, minExclusive, maxExclusive)
	return int64(n), err
}

func cmdZRemRangeByRank(ctx *ExecContext, args []string) (interface{}, error) {
	start, err1 := strconv.Atoi(args[2])
	stop, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil {
		return nil, engine.ErrNotInteger
	}
	n, err := engine.ZRemRangeByRank(ctx.d(), args[1], start, stop)
	return int64(n), err
}

// parseStoreKeys parses the numkeys/key... portion of a ZUNIONSTORE/
// ZINTERSTORE invocation, plus the optional trailing WEIGHTS w1 ... wN and
// AGGREGATE SUM|MIN|MAX clauses. weights defaults to all 1.0, agg defaults
// to AggregateSum, if the corresponding clause is absent.
func parseStoreKeys(args []string) (keys []string, weights []float64, agg engine.ZAggregate, err error) {
	numKeys, convErr := strconv.Atoi(args[2])
	if convErr != nil || numKeys <= 0 || 3+numKeys > len(args) {
		return nil, nil, agg, engine.ErrSyntax
	}
	keys = args[3 : 3+numKeys]
	weights = make([]float64, numKeys)
	for i := range weights {
		weights[i] = 1.0
	}
	agg = engine.AggregateSum

	rest := args[3+numKeys:]
	for i := 0; i < len(rest); {
		switch {
		case strings.EqualFold(rest[i], "WEIGHTS") && i+numKeys < len(rest):
			for j := 0; j < numKeys; j++ {
				w, werr := strconv.ParseFloat(rest[i+1+j], 64)
				if werr != nil {
					return nil, nil, agg, engine.ErrNotFloat
				}
				weights[j] = w
			}
			i += 1 + numKeys
		case strings.EqualFold(rest[i], "AGGREGATE") && i+1 < len(rest):
			switch strings.ToUpper(rest[i+1]) {
			case "SUM":
				agg = engine.AggregateSum
			case "MIN":
				agg = engine.AggregateMin
			case "MAX":
				agg = engine.AggregateMax
			default:
				return nil, nil, agg, engine.ErrSyntax
			}
			i += 2
		default:
			return nil, nil, agg, engine.ErrSyntax
		}
	}
	return keys, weights, agg, nil
}

func cmdZUnionStore(ctx *ExecContext, args []string) (interface{}, error) {
	keys, weights, agg, err := parseStoreKeys(args)
	if err != nil {
		return nil, err
	}
	n, err := engine.ZUnionStore(ctx.d(), ctx.limits(), args[1], keys, weights, agg)
	return int64(n), err
}

func cmdZInterStore(ctx *ExecContext, args []string) (interface{}, error) {
	keys, weights, agg, err := parseStoreKeys(args)
	if err != nil {
		return nil, err
	}
	n, err := engine.ZInterStore(ctx.d(), ctx.limits(), args[1], keys, weights, agg)
	return int64(n), err
}
