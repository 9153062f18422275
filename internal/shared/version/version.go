// Package version compares plugin and build versions using semver.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Build is stamped at link time with -ldflags "-X .../version.Build=v1.2.3".
var Build = "dev"

// Normalize ensures the "v" prefix semver expects: "1.2.3" -> "v1.2.3".
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// MeetsMinimum reports whether current satisfies min. An empty min accepts
// everything; an empty or unparseable current is rejected when min is set.
func MeetsMinimum(current, min string) bool {
	if strings.TrimSpace(min) == "" {
		return true
	}
	c, m := Normalize(current), Normalize(min)
	if !semver.IsValid(c) {
		return false
	}
	if !semver.IsValid(m) {
		return true
	}
	return semver.Compare(c, m) >= 0
}
