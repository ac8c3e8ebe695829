package types

import (
	"net/netip"
	"strings"

	"golang.org/x/mod/semver"
)

// Format names a string format an argument must satisfy.
type Format string

// Formats understood by the schema compiler.
const (
	FormatURI      Format = "uri"
	FormatHostname Format = "hostname"
	FormatIPv4     Format = "ipv4"
	FormatIPv6     Format = "ipv6"
	FormatEmail    Format = "email"
	FormatDate     Format = "date"
)

// Formats checked by operon.
const (
	FormatCIDR   Format = "cidr"   // 10.0.0.0/8, fd00::/8
	FormatSemver Format = "semver" // 1.2.3 or v1.2.3
)

var formatCheckers = map[Format]func(string) bool{
	FormatCIDR: func(s string) bool {
		_, err := netip.ParsePrefix(s)
		return err == nil
	},
	FormatSemver: func(s string) bool {
		if !strings.HasPrefix(s, "v") {
			s = "v" + s
		}
		return semver.IsValid(s)
	},
}

// IsValidFormat reports whether f can be used in an ArgSchema.
func IsValidFormat(f Format) bool {
	switch f {
	case FormatURI, FormatHostname, FormatIPv4, FormatIPv6, FormatEmail, FormatDate:
		return true
	}
	return IsCustomFormat(f)
}

// IsCustomFormat reports whether operon checks f itself.
func IsCustomFormat(f Format) bool {
	_, ok := formatCheckers[f]
	return ok
}

// compilerFormats adapts the custom checkers to the schema compiler. Values
// that are not strings pass; type constraints reject them separately.
func compilerFormats() map[string]func(any) bool {
	out := make(map[string]func(any) bool, len(formatCheckers))
	for name, check := range formatCheckers {
		out[string(name)] = func(v any) bool {
			s, ok := v.(string)
			return !ok || check(s)
		}
	}
	return out
}
