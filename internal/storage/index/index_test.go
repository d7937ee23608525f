package index

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/jgivc/romarchive/internal/config"
	"github.com/jgivc/romarchive/internal/entity"
	"github.com/jgivc/romarchive/internal/extract"
	"github.com/jgivc/romarchive/internal/ruleset"
)

const testBaseURL = "https://archive.test/files/"

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := &config.StoreConfig{DBPath: filepath.Join(t.TempDir(), "index.db")}
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	store, err := NewWithFS(afero.NewOsFs(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func mustUpsert(t *testing.T, store *Store, recs ...*entity.FileRecord) {
	t.Helper()

	for _, rec := range recs {
		require.NoError(t, store.Upsert(context.Background(), rec))
	}
}

func allRecords(t *testing.T, store *Store) []entity.FileRecord {
	t.Helper()

	result, err := store.AdvancedSearch(context.Background(), Filter{Limit: 1000})
	require.NoError(t, err)

	return result.Records
}

func TestUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &entity.FileRecord{
		URL:        testBaseURL + "No-Intro/Nintendo/Game.zip",
		Title:      "Game",
		Platform:   "Nintendo Game Boy",
		Collection: "No-Intro",
		Size:       1024,
	}
	mustUpsert(t, store, rec)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Same URL overwrites instead of duplicating.
	rec.Title = "Game Remastered"
	mustUpsert(t, store, rec)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	records := allRecords(t, store)
	require.Len(t, records, 1)
	require.Equal(t, "Game Remastered", records[0].Title)
}

func TestRescan(t *testing.T) {
	store := newTestStore(t)

	urlPath := "No-Intro/Nintendo%20-%20Game%20Boy/Super%20Mario%20Land%20(USA).zip"
	mustUpsert(t, store, &entity.FileRecord{
		URL:          testBaseURL + urlPath,
		Title:        "stale title",
		Platform:     "stale platform",
		Collection:   "stale",
		Size:         512 * 1024,
		LastModified: "26-Oct-2023 12:43",
	})

	parser := extract.New(testBaseURL, ruleset.Default())

	var current, total int
	err := store.Rescan(context.Background(), testBaseURL, parser, func(c, n int) {
		current, total = c, n
	})
	require.NoError(t, err)
	require.Equal(t, 1, current)
	require.Equal(t, 1, total)

	records := allRecords(t, store)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "Super Mario Land", rec.Title)
	require.Equal(t, "Nintendo Game Boy", rec.Platform)
	require.Equal(t, "No-Intro", rec.Collection)
	require.Equal(t, "USA", rec.Region)

	// Size and last_modified come from the listing, not from the path, and
	// survive the rescan untouched.
	require.Equal(t, int64(512*1024), rec.Size)
	require.Equal(t, "26-Oct-2023 12:43", rec.LastModified)

	exists, err := afero.Exists(store.fs, store.dbPath+backupSuffix)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRescanSkipsUnderivableRecords(t *testing.T) {
	store := newTestStore(t)

	// Two path segments only: the parser cannot derive metadata, so the
	// stored record must keep what it has.
	mustUpsert(t, store, &entity.FileRecord{
		URL:      testBaseURL + "Orphans/Game.zip",
		Title:    "Orphan Game",
		Platform: "Unset",
	})

	parser := extract.New(testBaseURL, ruleset.Default())
	require.NoError(t, store.Rescan(context.Background(), testBaseURL, parser, nil))

	records := allRecords(t, store)
	require.Len(t, records, 1)
	require.Equal(t, "Orphan Game", records[0].Title)
	require.Equal(t, "Unset", records[0].Platform)
}

func TestPurge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustUpsert(t, store,
		&entity.FileRecord{
			URL:      testBaseURL + "No-Intro/Nintendo/Super%20Mario%20Land.zip",
			Title:    "Super Mario Land",
			Platform: "Nintendo Game Boy",
		},
		&entity.FileRecord{
			// URL matches the "bios" ignore pattern.
			URL:      testBaseURL + "Redump/BIOS%20Images/SCPH1001.zip",
			Title:    "SCPH1001",
			Platform: "Sony PlayStation",
		},
		&entity.FileRecord{
			// Random generated ID, no leading run of letters.
			URL:      testBaseURL + "No-Intro/Nintendo/X9K2M4P7Q1.zip",
			Title:    "X9K2M4P7Q1",
			Platform: "Nintendo Game Boy",
		},
	)

	var lines []string
	deleted, err := store.Purge(ctx, ruleset.Default(), func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	records := allRecords(t, store)
	require.Equal(t, "Super Mario Land", records[0].Title)

	require.NotEmpty(t, lines)
	require.Equal(t, "Deletion complete: 2 files removed", lines[len(lines)-1])
}

func TestPurgeEmptyIndex(t *testing.T) {
	store := newTestStore(t)

	deleted, err := store.Purge(context.Background(), ruleset.Default(), nil)
	require.NoError(t, err)
	require.Zero(t, deleted)
}
