package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// administrative suffixes, specific ones before "自治区"
var regionSuffixes = []string{
	"壮族自治区",
	"回族自治区",
	"维吾尔自治区",
	"自治区",
	"特别行政区",
	"省",
	"市",
}

// NormalizeName removes all whitespace from a display name.
func NormalizeName(name string) string {
	return whitespaceRegex.ReplaceAllString(name, "")
}

// NormalizeRegion reduces a province level region name to the short form used by
// the remote api, "广西壮族自治区" -> "广西", "河南省" -> "河南".
func NormalizeRegion(name string) string {
	name = NormalizeName(name)
	for _, suffix := range regionSuffixes {
		trimmed := strings.TrimSuffix(name, suffix)
		if trimmed != name && trimmed != "" {
			return trimmed
		}
	}
	return name
}
