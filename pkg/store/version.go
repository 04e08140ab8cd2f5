package store

import (
	"strconv"
	"strings"
)

// VersionAtLeast reports whether a dotted server version is >= major.minor.
// Unparseable versions compare as newer.
func VersionAtLeast(version string, major, minor int) bool {
	parts := strings.SplitN(version, ".", 3)
	maj, err := strconv.Atoi(parts[0])
	if err != nil {
		return true
	}
	if maj != major {
		return maj > major
	}
	if len(parts) < 2 {
		return minor == 0
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil {
		return true
	}
	return min >= minor
}
