// Package ruleset holds the immutable ignore/alias tables shared by the
// extractor, the normalizer and the crawler. A Ruleset is built once from
// config and never mutated afterwards, so it is safe to share between
// crawl workers.
package ruleset

import (
	"strings"

	"github.com/jgivc/romarchive/internal/config"
)

type alias struct {
	match     string // lower-cased substring to look for
	canonical string
}

type Ruleset struct {
	baseFolders      map[string]struct{}
	folderSubstrings []string
	aliases          []alias
}

func New(cfg *config.RulesetConfig) *Ruleset {
	base := make(map[string]struct{}, len(cfg.IgnoredBaseFolders))
	for _, name := range cfg.IgnoredBaseFolders {
		if name = strings.TrimSpace(name); name != "" {
			base[strings.ToLower(name)] = struct{}{}
		}
	}

	subs := make([]string, 0, len(cfg.IgnoredFolders))
	for _, s := range cfg.IgnoredFolders {
		if s = strings.TrimSpace(s); s != "" {
			subs = append(subs, strings.ToLower(s))
		}
	}

	aliases := make([]alias, 0, len(cfg.PlatformAliases))
	for _, a := range cfg.PlatformAliases {
		if a.Alias == "" || a.Canonical == "" {
			continue
		}
		aliases = append(aliases, alias{match: strings.ToLower(a.Alias), canonical: a.Canonical})
	}

	return &Ruleset{
		baseFolders:      base,
		folderSubstrings: subs,
		aliases:          aliases,
	}
}

// Default builds the ruleset from the built-in configuration defaults.
func Default() *Ruleset {
	cfg := &config.Config{}
	cfg.SetDefaults()

	return New(&cfg.RulesetConfig)
}

// IsIgnoredBaseFolder reports whether the decoded entry name exactly
// matches an ignored archive section or uploader.
func (r *Ruleset) IsIgnoredBaseFolder(name string) bool {
	_, ok := r.baseFolders[strings.ToLower(strings.Trim(name, "/"))]

	return ok
}

// MatchIgnoredFolder reports whether the decoded, lower-cased folder path
// contains any ignored-folder substring.
func (r *Ruleset) MatchIgnoredFolder(path string) bool {
	path = strings.ToLower(path)
	for _, s := range r.folderSubstrings {
		if strings.Contains(path, s) {
			return true
		}
	}

	return false
}

// IsDeniedToken reports whether a single platform-name token is on the
// ignored-folder list. The folder list doubles as a token denylist during
// normalization (e.g. "non-redump", "bios").
func (r *Ruleset) IsDeniedToken(token string) bool {
	token = strings.ToLower(token)
	for _, s := range r.folderSubstrings {
		if token == s {
			return true
		}
	}

	return false
}

// ResolveAlias returns the canonical platform name for the first alias
// contained in s, case-insensitive. First match wins; no further aliases
// are applied.
func (r *Ruleset) ResolveAlias(s string) (string, bool) {
	low := strings.ToLower(s)
	for _, a := range r.aliases {
		if strings.Contains(low, a.match) {
			return a.canonical, true
		}
	}

	return "", false
}

// IgnoredPatterns returns every ignore entry, lower-cased, for the purge
// pass to match against stored urls, platforms and titles.
func (r *Ruleset) IgnoredPatterns() []string {
	patterns := make([]string, 0, len(r.baseFolders)+len(r.folderSubstrings))
	for name := range r.baseFolders {
		patterns = append(patterns, name)
	}
	patterns = append(patterns, r.folderSubstrings...)

	return patterns
}
