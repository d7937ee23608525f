// Package index is the persistent index store: a single SQLite table of
// file records keyed by URL, with upsert, rescan, purge and faceted
// search on top of it.
package index

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"modernc.org/sqlite"

	"github.com/jgivc/romarchive/internal/config"
	"github.com/jgivc/romarchive/internal/entity"
	"github.com/jgivc/romarchive/internal/extract"
	"github.com/jgivc/romarchive/internal/ruleset"
)

const (
	rescanBatchSize = 100
	purgeBatchSize  = 500

	backupSuffix = ".bak"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	url TEXT PRIMARY KEY,
	title TEXT,
	platform TEXT,
	collection TEXT,
	region TEXT,
	language TEXT,
	version TEXT,
	size INTEGER,
	last_modified TEXT
)`

func init() {
	// The REGEXP operator is not built into SQLite; back it with a Go
	// case-insensitive match so search can push regex filters into SQL.
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			pattern, ok := args[0].(string)
			if !ok || pattern == "" {
				return int64(0), nil
			}
			text, ok := args[1].(string)
			if !ok {
				return int64(0), nil
			}

			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return int64(0), nil
			}
			if re.MatchString(text) {
				return int64(1), nil
			}

			return int64(0), nil
		})
}

// MetadataParser re-derives record metadata from a URL path during rescan.
type MetadataParser interface {
	Parse(urlPath string) (*entity.FileRecord, bool)
}

type Store struct {
	db     *sql.DB
	fs     afero.Fs
	dbPath string
	log    *slog.Logger
}

func New(cfg *config.StoreConfig, log *slog.Logger) (*Store, error) {
	return NewWithFS(afero.NewOsFs(), cfg, log)
}

func NewWithFS(fs afero.Fs, cfg *config.StoreConfig, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %s: %w", cfg.DBPath, err)
	}

	// One serialized connection shared by all crawl workers: the write
	// path of the store does not support unserialized concurrent writers,
	// and database/sql does the queueing.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()

			return nil, fmt.Errorf("cannot apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot create files table: %w", err)
	}

	return &Store{
		db:     db,
		fs:     fs,
		dbPath: cfg.DBPath,
		log:    log.With(slog.String("item", "IndexStore")),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or overwrites the record keyed by its URL.
func (s *Store) Upsert(ctx context.Context, rec *entity.FileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO files
		(url, title, platform, collection, region, language, version, size, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.URL, rec.Title, rec.Platform, rec.Collection,
		nullable(rec.Region), nullable(rec.Language), nullable(rec.Version),
		nullableInt(rec.Size), nullable(rec.LastModified),
	)
	if err != nil {
		return fmt.Errorf("cannot upsert record: %w", err)
	}

	return nil
}

// Count returns the number of indexed records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cannot count records: %w", err)
	}

	return n, nil
}

// Rescan re-derives title/platform/collection/region/language/version for
// every stored URL from its path alone, leaving size and last_modified
// untouched. Records whose metadata can no longer be derived are skipped.
// Changes are committed every rescanBatchSize records, so a mid-rescan
// failure loses at most one batch; a backup copy of the database is made
// once before the first rescan.
func (s *Store) Rescan(ctx context.Context, baseURL string, parser MetadataParser, progress func(current, total int)) error {
	if err := s.backupOnce(); err != nil {
		return fmt.Errorf("cannot back up database: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT url FROM files`)
	if err != nil {
		return fmt.Errorf("cannot list urls: %w", err)
	}

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			rows.Close()

			return fmt.Errorf("cannot scan url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()

		return fmt.Errorf("cannot iterate urls: %w", err)
	}
	rows.Close()

	total := len(urls)
	s.log.Info("Rescan started", slog.Int("records", total))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin rescan transaction: %w", err)
	}

	for i, u := range urls {
		rec, ok := parser.Parse(strings.TrimPrefix(u, baseURL))
		if !ok {
			continue
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE files SET
				title = ?, platform = ?, collection = ?,
				region = ?, language = ?, version = ?
			WHERE url = ?`,
			rec.Title, rec.Platform, rec.Collection,
			nullable(rec.Region), nullable(rec.Language), nullable(rec.Version),
			u,
		)
		if err != nil {
			tx.Rollback()

			return fmt.Errorf("cannot update record: %w", err)
		}

		if (i+1)%rescanBatchSize == 0 {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("cannot commit rescan batch: %w", err)
			}
			if progress != nil {
				progress(i+1, total)
			}

			if tx, err = s.db.BeginTx(ctx, nil); err != nil {
				return fmt.Errorf("cannot begin rescan transaction: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit rescan: %w", err)
	}

	if progress != nil {
		progress(total, total)
	}
	s.log.Info("Rescan complete", slog.Int("records", total))

	return nil
}

// Purge deletes every record whose URL, platform or title contains an
// ignore-ruleset entry (case-insensitive), or whose title looks like a
// random generated ID. Deletion proceeds in bounded batches.
func (s *Store) Purge(ctx context.Context, rules *ruleset.Ruleset, progress func(string)) (int, error) {
	idSet := make(map[int64]struct{})

	for _, pattern := range rules.IgnoredPatterns() {
		like := "%" + pattern + "%"
		rows, err := s.db.QueryContext(ctx, `
			SELECT rowid FROM files
			WHERE LOWER(url) LIKE ? OR LOWER(platform) LIKE ? OR LOWER(title) LIKE ?`,
			like, like, like)
		if err != nil {
			return 0, fmt.Errorf("cannot match ignored pattern: %w", err)
		}
		if err := collectIDs(rows, idSet); err != nil {
			return 0, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT rowid, title FROM files`)
	if err != nil {
		return 0, fmt.Errorf("cannot list titles: %w", err)
	}
	for rows.Next() {
		var (
			id    int64
			title sql.NullString
		)
		if err := rows.Scan(&id, &title); err != nil {
			rows.Close()

			return 0, fmt.Errorf("cannot scan title: %w", err)
		}
		if extract.LooksLikeRandomID(title.String) {
			idSet[id] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()

		return 0, fmt.Errorf("cannot iterate titles: %w", err)
	}
	rows.Close()

	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	total := len(ids)
	if total == 0 {
		return 0, nil
	}

	deleted := 0
	for len(ids) > 0 {
		batch := ids
		if len(batch) > purgeBatchSize {
			batch = batch[:purgeBatchSize]
		}
		ids = ids[len(batch):]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM files WHERE rowid IN (`+placeholders+`)`, args...); err != nil {
			return deleted, fmt.Errorf("cannot delete batch: %w", err)
		}

		deleted += len(batch)
		if progress != nil {
			progress(fmt.Sprintf("Deleted %d/%d files", deleted, total))
		}
	}

	if progress != nil {
		progress(fmt.Sprintf("Deletion complete: %d files removed", deleted))
	}
	s.log.Info("Purge complete", slog.Int("deleted", deleted))

	return deleted, nil
}

func (s *Store) backupOnce() error {
	backupPath := s.dbPath + backupSuffix

	if _, err := s.fs.Stat(backupPath); err == nil {
		return nil
	}
	if _, err := s.fs.Stat(s.dbPath); err != nil {
		return nil // nothing to back up, table lives in memory or is new
	}

	data, err := afero.ReadFile(s.fs, s.dbPath)
	if err != nil {
		return fmt.Errorf("cannot read database file: %w", err)
	}

	if err := afero.WriteFile(s.fs, backupPath, data, 0o644); err != nil {
		return fmt.Errorf("cannot write backup file: %w", err)
	}
	s.log.Info("Database backed up", slog.String("path", backupPath))

	return nil
}

func collectIDs(rows *sql.Rows, dst map[int64]struct{}) error {
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("cannot scan rowid: %w", err)
		}
		dst[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("cannot iterate rowids: %w", err)
	}

	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func nullableInt(n int64) any {
	if n == 0 {
		return nil
	}

	return n
}
