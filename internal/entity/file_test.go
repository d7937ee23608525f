package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListingEntryIsFolder(t *testing.T) {
	require.True(t, ListingEntry{Name: "No-Intro/"}.IsFolder())
	require.False(t, ListingEntry{Name: "Game.zip"}.IsFolder())
	require.False(t, ListingEntry{Name: ""}.IsFolder())
}

func TestListingEntrySizeBytes(t *testing.T) {
	testCases := []struct {
		name        string
		text        string
		expected    int64
		expectError bool
	}{
		{name: "plain bytes", text: "734", expected: 734},
		{name: "kibibytes", text: "2.0 KiB", expected: 2048},
		{name: "mebibytes", text: "1.5 MiB", expected: 1572864},
		{name: "gibibytes", text: "1.2 GiB", expected: 1288490188},
		{name: "tebibytes", text: "1 TiB", expected: 1 << 40},
		{name: "empty", text: "", expectError: true},
		{name: "dash placeholder", text: "-", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			size, err := ListingEntry{Size: tc.text}.SizeBytes()
			if tc.expectError {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expected, size)
		})
	}
}
