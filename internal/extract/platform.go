package extract

import (
	"net/url"
	"strings"
)

// The archive's path conventions are irregular per top-level section, so
// the raw platform segment cannot be derived from a fixed position. Each
// rule pairs a section predicate with its own segment extractor; rules are
// evaluated in order and the first match wins.
type platformRule struct {
	name     string
	match    func(rawPath, decodedPath string) bool
	platform func(parts []string) (string, bool)
}

var platformRules = []platformRule{
	{
		name: "tosec-games",
		match: func(rawPath, _ string) bool {
			low := strings.ToLower(rawPath)

			return strings.Contains(low, "tosec") && strings.Contains(low, "games")
		},
		platform: func(parts []string) (string, bool) {
			if len(parts) < 3 {
				return "", false
			}

			return parts[1] + " - " + parts[2], true
		},
	},
	{
		name: "who_lee",
		match: func(rawPath, _ string) bool {
			decoded := mustUnescape(strings.ToLower(rawPath))

			return strings.Contains(decoded, "who_lee")
		},
		platform: func(parts []string) (string, bool) {
			if len(parts) < 5 {
				return "", false
			}

			return parts[3], true
		},
	},
	{
		name: "retroachievements",
		match: func(rawPath, _ string) bool {
			return strings.Contains(strings.ToLower(rawPath), "retroachievements")
		},
		platform: func(parts []string) (string, bool) {
			_, after, found := strings.Cut(parts[1], "-")
			if !found {
				return "", false
			}

			return strings.TrimSpace(after), true
		},
	},
	{
		name: "t-en-collection",
		match: func(_, decodedPath string) bool {
			return strings.Contains(strings.ToLower(decodedPath), "t-en collection")
		},
		platform: func(parts []string) (string, bool) {
			platform := strings.Replace(mustUnescape(parts[1]), " [T-En] Collection", "", 1)
			manufacturer, device, found := strings.Cut(platform, "-")
			if !found {
				return "", false
			}

			return strings.TrimSpace(manufacturer) + " " + strings.TrimSpace(device), true
		},
	},
	{
		// The Total DOS Collection branch mixes games with loose archive
		// dumps under the same tree and is excluded wholesale.
		name: "total-dos-collection",
		match: func(_, decodedPath string) bool {
			return strings.Contains(strings.ToLower(decodedPath), "total dos collection")
		},
		platform: func(_ []string) (string, bool) {
			return "", false
		},
	},
}

// rawPlatform derives the raw platform token for a path. parts are the
// percent-encoded path segments; the default is the second segment
// (collection/platform/...).
func rawPlatform(rawPath, decodedPath string, parts []string) (string, bool) {
	for _, rule := range platformRules {
		if rule.match(rawPath, decodedPath) {
			return rule.platform(parts)
		}
	}

	return parts[1], true
}

func mustUnescape(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}

	return decoded
}
