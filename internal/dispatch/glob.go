package dispatch

import (
	"regexp"
	"strings"
)

// globMatch reports whether name matches a glob pattern supporting * (any
// run of characters) and ? (single character), as used by KEYS.
func globMatch(pattern, name string) bool {
	re := compileGlob(pattern)
	if re == nil {
		return pattern == name
	}
	return re.MatchString(name)
}

func compileGlob(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	re, err := regexp.Compile("^" + quoted + "$")
	if err != nil {
		return nil
	}
	return re
}
