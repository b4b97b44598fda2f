package aof

import (
	"strconv"
	"strings"
)

// Normalize rewrites a successfully-executed command into the form the
// log must replay deterministically from. result is the command's final
// value where the command's own arguments aren't enough to reconstruct
// it (INCRBYFLOAT/HINCRBYFLOAT); it's ignored otherwise. nowMillis is the
// wall-clock time the command executed at, used to turn relative
// expirations into absolute ones.
//
// Returns the commands that should actually be appended. Any command not
// rewritten above (including a read-only one) is returned unchanged, so
// callers pass only write commands; an empty args normalizes to nil.
func Normalize(args []string, nowMillis int64, result string) [][]string {
	if len(args) == 0 {
		return nil
	}
	cmd := strings.ToUpper(args[0])

	switch cmd {
	case "EXPIRE", "PEXPIRE":
		if len(args) != 3 {
			return [][]string{args}
		}
		n, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return [][]string{args}
		}
		deadline := nowMillis + n
		if cmd == "EXPIRE" {
			deadline = nowMillis + n*1000
		}
		return [][]string{{"PEXPIREAT", args[1], strconv.FormatInt(deadline, 10)}}

	case "EXPIREAT":
		if len(args) != 3 {
			return [][]string{args}
		}
		n, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return [][]string{args}
		}
		return [][]string{{"PEXPIREAT", args[1], strconv.FormatInt(n*1000, 10)}}

	case "SETEX", "PSETEX":
		if len(args) != 4 {
			return [][]string{args}
		}
		n, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return [][]string{args}
		}
		deadline := nowMillis + n
		if cmd == "SETEX" {
			deadline = nowMillis + n*1000
		}
		return [][]string{
			{"SET", args[1], args[3]},
			{"PEXPIREAT", args[1], strconv.FormatInt(deadline, 10)},
		}

	case "INCRBYFLOAT":
		if len(args) != 3 {
			return [][]string{args}
		}
		return [][]string{{"SET", args[1], result}}

	case "HINCRBYFLOAT":
		if len(args) != 4 {
			return [][]string{args}
		}
		return [][]string{{"HSET", args[1], args[2], result}}

	default:
		return [][]string{args}
	}
}
