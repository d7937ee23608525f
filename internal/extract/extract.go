// Package extract derives structured metadata from archive paths. All
// functions are pure: a path that cannot yield a valid record is reported
// with an ok-bool, never an error.
package extract

import (
	"regexp"
	"strings"

	"github.com/jgivc/romarchive/internal/entity"
	"github.com/jgivc/romarchive/internal/ruleset"
)

var (
	parenGroupRE = regexp.MustCompile(`\(([^)]+)\)`)
	parenStripRE = regexp.MustCompile(`\s*\([^)]*\)`)

	digitsOnlyRE  = regexp.MustCompile(`^\d{8,}$`)
	alnumOnlyRE   = regexp.MustCompile(`^[0-9A-Za-z]{8,}$`)
	leadLettersRE = regexp.MustCompile(`^[A-Za-z]{4,}`)

	langListRE = regexp.MustCompile(`^[a-z]{2}(,[a-z]{2})*$`)
)

var acceptedExtensions = map[string]struct{}{
	".zip": {},
	".chd": {},
	".iso": {},
}

var regions = map[string]struct{}{
	"us": {}, "eu": {}, "jp": {}, "pal": {}, "europe": {},
	"usa": {}, "japan": {}, "ntsc": {}, "china": {}, "korea": {},
}

var langMap = map[string]string{
	"en": "EN", "english": "EN",
	"fr": "FR", "french": "FR",
	"de": "DE", "german": "DE",
	"es": "ES",
	"it": "IT", "italian": "IT",
	"jp": "JP", "japanese": "JP",
}

// Extractor parses percent-encoded paths relative to the archive root into
// file records. It is stateless apart from the injected ruleset and safe
// for concurrent use.
type Extractor struct {
	baseURL string
	rules   *ruleset.Ruleset
}

func New(baseURL string, rules *ruleset.Ruleset) *Extractor {
	return &Extractor{
		baseURL: baseURL,
		rules:   rules,
	}
}

// Parse builds a record for the given path, or reports false for anything
// that is not an indexable game file: wrong extension, too few path
// segments, an excluded section, or a random-ID title.
func (e *Extractor) Parse(urlPath string) (*entity.FileRecord, bool) {
	if !hasAcceptedExtension(urlPath) || strings.Contains(urlPath, "/./") {
		return nil, false
	}

	parts := strings.Split(strings.Trim(urlPath, "/"), "/")
	if len(parts) < 3 {
		return nil, false
	}

	decodedPath := mustUnescape(urlPath)

	platformRaw, ok := rawPlatform(urlPath, decodedPath, parts)
	if !ok || platformRaw == "" {
		return nil, false
	}
	platformRaw = mustUnescape(platformRaw)

	filename := mustUnescape(parts[len(parts)-1])
	title := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		title = filename[:i]
	}

	titleClean := strings.TrimSpace(parenStripRE.ReplaceAllString(title, ""))
	if looksLikeRandomID(titleClean) {
		return nil, false
	}

	var metaParts []string
	for _, m := range parenGroupRE.FindAllStringSubmatch(title, -1) {
		metaParts = append(metaParts, m[1])
	}

	return &entity.FileRecord{
		URL:        e.baseURL + strings.TrimLeft(urlPath, "/"),
		Title:      titleClean,
		Platform:   NormalizePlatform(platformRaw, e.rules),
		Collection: mustUnescape(parts[0]),
		Region:     extractRegion(metaParts),
		Language:   extractLanguages(metaParts),
		Version:    extractVersion(metaParts, parts, platformRaw),
	}, true
}

// LooksLikeRandomID reports whether a parentheses-stripped title is an
// auto-generated hash-like name rather than a human-meaningful one: all
// digits of length >= 8, or alphanumeric of length >= 8 without a leading
// run of at least four letters.
func LooksLikeRandomID(name string) bool {
	return looksLikeRandomID(name)
}

func looksLikeRandomID(name string) bool {
	if digitsOnlyRE.MatchString(name) {
		return true
	}
	if alnumOnlyRE.MatchString(name) {
		return !leadLettersRE.MatchString(name)
	}

	return false
}

func hasAcceptedExtension(path string) bool {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return false
	}
	_, ok := acceptedExtensions[strings.ToLower(path[i:])]

	return ok
}

// extractRegion returns the first parenthetical group matching a known
// region token, upper-cased.
func extractRegion(metaParts []string) string {
	for _, p := range metaParts {
		if _, ok := regions[strings.ToLower(p)]; ok {
			return strings.ToUpper(p)
		}
	}

	return ""
}

// extractLanguages collects language codes from the parenthetical groups:
// either a comma list of 2-letter codes or a known language word. Codes
// are deduplicated preserving first-seen order.
func extractLanguages(metaParts []string) string {
	var codes []string
	for _, p := range metaParts {
		low := strings.ReplaceAll(strings.ToLower(p), " ", "")
		switch {
		case langListRE.MatchString(low):
			for _, code := range strings.Split(low, ",") {
				codes = append(codes, strings.ToUpper(code))
			}
		default:
			if code, ok := langMap[low]; ok {
				codes = append(codes, code)
			}
		}
	}

	seen := make(map[string]struct{}, len(codes))
	unique := codes[:0]
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		unique = append(unique, code)
	}

	return strings.Join(unique, ",")
}

// extractVersion resolves the version marker with a fixed priority:
// an exact parenthetical match, then ancestor folder names, then keywords
// inside the raw platform string ("nkit rvz" before "nkit" before "rvz").
func extractVersion(metaParts, parts []string, platformRaw string) string {
	cryptStates := []string{"decrypted", "encrypted"}

	for _, p := range metaParts {
		for _, v := range cryptStates {
			if strings.ToLower(p) == v {
				return titleCase(v)
			}
		}
	}

	for _, v := range cryptStates {
		for _, folder := range parts[:len(parts)-1] {
			if strings.Contains(strings.ToLower(folder), v) {
				return titleCase(v)
			}
		}
	}

	platformLow := strings.ToLower(platformRaw)
	for _, keyword := range []string{"nkit rvz", "nkit", "rvz"} {
		if strings.Contains(platformLow, keyword) {
			return titleCase(keyword)
		}
	}

	return ""
}
