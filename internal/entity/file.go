package entity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jgivc/romarchive/internal/common"
)

// FileRecord is one indexed archive entry, keyed by its absolute URL.
// Re-indexing the same URL overwrites the record in place.
type FileRecord struct {
	URL          string // Absolute URL, primary key
	Title        string // Filename with extension and parenthetical metadata stripped
	Platform     string // Canonical platform name, always passed through the normalizer
	Collection   string // Top-level archive section name
	Region       string // Upper-cased region token, empty if absent
	Language     string // Comma-joined upper-case codes, first-seen order, empty if absent
	Version      string // "Decrypted", "Encrypted", "Nkit", "Nkit Rvz", "Rvz" or empty
	Size         int64  // Size in bytes
	LastModified string // Timestamp string as reported by the source listing
}

// ListingEntry is a single row of a remote directory listing.
// Folder entries carry a trailing slash in Name.
type ListingEntry struct {
	Name         string // Percent-encoded name as it appears in the listing link
	Size         string // Human-readable size text, empty for folders
	LastModified string
}

// IsFolder reports whether the entry links to a sub-folder.
func (e ListingEntry) IsFolder() bool {
	return len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/'
}

// SizeBytes converts the human-readable size text ("1.2 GiB", "734 KiB")
// into bytes. Sizes are stored canonically as integers so search can
// compare against byte bounds without re-parsing text.
func (e ListingEntry) SizeBytes() (int64, error) {
	fields := strings.Fields(e.Size)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidSizeText, e.Size)
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidSizeText, e.Size)
	}

	var unit string
	if len(fields) > 1 {
		unit = strings.ToUpper(fields[1])
	}

	multiplier := float64(1)
	switch {
	case strings.HasPrefix(unit, "K"):
		multiplier = 1 << 10
	case strings.HasPrefix(unit, "M"):
		multiplier = 1 << 20
	case strings.HasPrefix(unit, "G"):
		multiplier = 1 << 30
	case strings.HasPrefix(unit, "T"):
		multiplier = 1 << 40
	}

	return int64(value * multiplier), nil
}
