// Package keys flattens multi-part identifiers into store keys.
//
// Parts are joined with Separator and not escaped: Unpack(Pack(a, b)) returns
// the string forms of a and b only while neither contains Separator.
package keys

import (
	"fmt"
	"strings"
)

const Separator = "_"

func Pack(parts ...any) string {
	ss := make([]string, len(parts))
	for i, p := range parts {
		ss[i] = fmt.Sprint(p)
	}
	return strings.Join(ss, Separator)
}

func Unpack(key string) []string {
	return strings.Split(key, Separator)
}
