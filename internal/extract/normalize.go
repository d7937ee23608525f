package extract

import (
	"strings"
	"unicode"

	"github.com/jgivc/romarchive/internal/ruleset"
)

// NormalizePlatform turns a raw platform token into its canonical display
// name. The transform is total and deterministic: truncate at the first
// "(", flatten " - " joins, drop consecutive duplicate words and denied
// tokens, resolve the first matching alias, title-case the result.
func NormalizePlatform(platform string, rules *ruleset.Ruleset) string {
	if i := strings.Index(platform, "("); i >= 0 {
		platform = platform[:i]
	}

	parts := strings.Split(platform, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	// Collapse consecutive case-insensitive duplicates only; distinct
	// repeats elsewhere in the name are legitimate.
	var (
		tokens   []string
		prevWord string
	)
	for _, word := range strings.Fields(strings.Join(parts, " ")) {
		lw := strings.ToLower(word)
		if lw != prevWord && !rules.IsDeniedToken(lw) {
			tokens = append(tokens, word)
		}
		prevWord = lw
	}

	clean := strings.Join(tokens, " ")

	if canonical, ok := rules.ResolveAlias(clean); ok {
		clean = canonical
	}

	return titleCase(clean)
}

// titleCase capitalizes the first letter of every alphabetic run and
// lower-cases the rest, matching the display convention used throughout
// the index ("nkit rvz" -> "Nkit Rvz", "ms-dos" -> "Ms-Dos").
func titleCase(s string) string {
	var (
		b        strings.Builder
		prevWord bool
	)
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
			prevWord = false
			b.WriteRune(r)
		case prevWord:
			b.WriteRune(unicode.ToLower(r))
		default:
			prevWord = true
			b.WriteRune(unicode.ToUpper(r))
		}
	}

	return b.String()
}
