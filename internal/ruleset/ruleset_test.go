package ruleset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jgivc/romarchive/internal/config"
)

func TestRuleset(t *testing.T) {
	rules := New(&config.RulesetConfig{
		IgnoredBaseFolders: []string{"MAME", "TOSEC-PIX"},
		IgnoredFolders:     []string{"bios", "cheat disc"},
		PlatformAliases: []config.Alias{
			{Alias: "snk neo geo", Canonical: "SNK Neo Geo"},
			{Alias: "snk neo geo cd", Canonical: "SNK Neo Geo CD"},
		},
	})

	t.Run("base folders match exactly, case-insensitive", func(t *testing.T) {
		require.True(t, rules.IsIgnoredBaseFolder("mame"))
		require.True(t, rules.IsIgnoredBaseFolder("MAME/"))
		require.False(t, rules.IsIgnoredBaseFolder("mame 2003"))
	})

	t.Run("folder substrings match anywhere in the path", func(t *testing.T) {
		require.True(t, rules.MatchIgnoredFolder("No-Intro/Sony PlayStation (Cheat Disc)/"))
		require.True(t, rules.MatchIgnoredFolder("Redump/BIOS Images/"))
		require.False(t, rules.MatchIgnoredFolder("No-Intro/Sega Genesis/"))
	})

	t.Run("denied tokens match whole tokens only", func(t *testing.T) {
		require.True(t, rules.IsDeniedToken("bios"))
		require.True(t, rules.IsDeniedToken("BIOS"))
		require.False(t, rules.IsDeniedToken("bios-pack"))
	})

	t.Run("first alias wins", func(t *testing.T) {
		canonical, ok := rules.ResolveAlias("SNK Neo Geo CD")
		require.True(t, ok)
		// "snk neo geo" precedes "snk neo geo cd" and matches as a
		// substring first.
		require.Equal(t, "SNK Neo Geo", canonical)

		_, ok = rules.ResolveAlias("Sega Genesis")
		require.False(t, ok)
	})

	t.Run("ignored patterns cover both lists", func(t *testing.T) {
		patterns := rules.IgnoredPatterns()
		require.ElementsMatch(t, []string{"mame", "tosec-pix", "bios", "cheat disc"}, patterns)
	})
}

func TestDefaultRuleset(t *testing.T) {
	rules := Default()

	require.True(t, rules.IsIgnoredBaseFolder("MAME"))
	require.True(t, rules.MatchIgnoredFolder("no-intro/non-redump collection/"))

	canonical, ok := rules.ResolveAlias("nintendo super entertainment system")
	require.True(t, ok)
	require.Equal(t, "Super Nintendo Entertainment System", canonical)
}
