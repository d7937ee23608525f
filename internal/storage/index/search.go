package index

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jgivc/romarchive/internal/entity"
)

const (
	SortOrderAsc  = "ASC"
	SortOrderDesc = "DESC"

	defaultLimit = 100
)

// Size buckets presented as a search facet, in ascending order.
var sizeRanges = []struct {
	name     string
	min, max int64 // max < 0 means unbounded
}{
	{"0-100MiB", 0, 100 << 20},
	{"100-500MiB", 100 << 20, 500 << 20},
	{"500MiB-1GiB", 500 << 20, 1 << 30},
	{"1-5GiB", 1 << 30, 5 << 30},
	{"5GiB+", 5 << 30, -1},
}

var sortColumns = map[string]struct{}{
	"title": {}, "platform": {}, "collection": {}, "region": {},
	"version": {}, "size": {}, "last_modified": {},
}

// Filter is one search request. Empty fields mean "no constraint".
type Filter struct {
	Platform      string
	Region        string
	Version       string
	Language      string // single upper-case code, matched against the comma set
	TitleContains string
	TitleRegex    bool // treat TitleContains as a regular expression
	SizeRange     string

	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// Result carries the matching records plus the distinct facet values still
// reachable under the current filter combination.
type Result struct {
	Records    []entity.FileRecord
	Platforms  []string
	Regions    []string
	Languages  []string
	Versions   []string
	SizeRanges []string
}

// AdvancedSearch runs the filtered query and computes the narrowed facets.
// Residual records whose title is a bare 16-character hex token are never
// returned.
func (s *Store) AdvancedSearch(ctx context.Context, f Filter) (*Result, error) {
	where, args := buildWhere(f, "")

	query := `SELECT url, title, platform, collection, region, language, version, size, last_modified
		FROM files ` + where

	sortBy := f.SortBy
	if _, ok := sortColumns[sortBy]; !ok {
		sortBy = "title"
	}
	order := SortOrderAsc
	if strings.EqualFold(f.SortOrder, SortOrderDesc) {
		order = SortOrderDesc
	}
	if sortBy == "size" {
		query += fmt.Sprintf(" ORDER BY size %s", order)
	} else {
		query += fmt.Sprintf(" ORDER BY %s COLLATE NOCASE %s", sortBy, order)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot run search query: %w", err)
	}
	defer rows.Close()

	result := &Result{}
	for rows.Next() {
		var (
			rec                       entity.FileRecord
			region, language, version sql.NullString
			size                      sql.NullInt64
			lastModified              sql.NullString
		)
		if err := rows.Scan(&rec.URL, &rec.Title, &rec.Platform, &rec.Collection,
			&region, &language, &version, &size, &lastModified); err != nil {
			return nil, fmt.Errorf("cannot scan record: %w", err)
		}
		rec.Region = region.String
		rec.Language = language.String
		rec.Version = version.String
		rec.Size = size.Int64
		rec.LastModified = lastModified.String

		result.Records = append(result.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot iterate search results: %w", err)
	}

	if result.Platforms, err = s.fetchDistinct(ctx, "platform", f); err != nil {
		return nil, err
	}
	if result.Regions, err = s.fetchDistinct(ctx, "region", f); err != nil {
		return nil, err
	}
	if result.Languages, err = s.fetchDistinct(ctx, "language", f); err != nil {
		return nil, err
	}
	if result.Versions, err = s.fetchDistinct(ctx, "version", f); err != nil {
		return nil, err
	}
	if result.SizeRanges, err = s.fetchSizeRanges(ctx, f); err != nil {
		return nil, err
	}

	return result, nil
}

// ListPlatforms returns every distinct platform in the index.
func (s *Store) ListPlatforms(ctx context.Context) ([]string, error) {
	return s.fetchDistinct(ctx, "platform", Filter{})
}

func (s *Store) ListRegions(ctx context.Context) ([]string, error) {
	return s.fetchDistinct(ctx, "region", Filter{})
}

func (s *Store) ListLanguages(ctx context.Context) ([]string, error) {
	return s.fetchDistinct(ctx, "language", Filter{})
}

func (s *Store) ListVersions(ctx context.Context) ([]string, error) {
	return s.fetchDistinct(ctx, "version", Filter{})
}

func (s *Store) ListSizeRanges(ctx context.Context) ([]string, error) {
	return s.fetchSizeRanges(ctx, Filter{})
}

// buildWhere assembles the WHERE clause for f, skipping the facet field
// named by skip so each facet query sees every filter except its own.
func buildWhere(f Filter, skip string) (string, []any) {
	var (
		conds []string
		args  []any
	)

	// Residual-artifact filter: bare 16-char hex tokens left over from
	// download-ID uploads.
	conds = append(conds, `NOT (LENGTH(title) = 16 AND title NOT GLOB '*[^0-9A-Fa-f]*')`)

	if f.TitleContains != "" {
		if f.TitleRegex {
			conds = append(conds, `title REGEXP ?`)
			args = append(args, f.TitleContains)
		} else {
			conds = append(conds, `title LIKE ?`)
			args = append(args, "%"+f.TitleContains+"%")
		}
	}

	if f.Platform != "" && skip != "platform" {
		conds = append(conds, `platform = ?`)
		args = append(args, f.Platform)
	}
	if f.Region != "" && skip != "region" {
		conds = append(conds, `region = ?`)
		args = append(args, f.Region)
	}
	if f.Version != "" && skip != "version" {
		conds = append(conds, `version = ?`)
		args = append(args, f.Version)
	}
	if f.Language != "" && skip != "language" {
		conds = append(conds, `(',' || language || ',') LIKE ?`)
		args = append(args, "%,"+f.Language+",%")
	}
	if f.SizeRange != "" && skip != "size" {
		if min, max, ok := sizeRangeBounds(f.SizeRange); ok {
			if max < 0 {
				conds = append(conds, `size >= ?`)
				args = append(args, min)
			} else {
				conds = append(conds, `size >= ? AND size < ?`)
				args = append(args, min, max)
			}
		}
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) fetchDistinct(ctx context.Context, field string, f Filter) ([]string, error) {
	where, args := buildWhere(f, field)

	query := fmt.Sprintf(`SELECT DISTINCT %s FROM files %s AND %s IS NOT NULL`, field, where, field)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch distinct %s: %w", field, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("cannot scan distinct %s: %w", field, err)
		}
		if v.String != "" {
			values = append(values, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot iterate distinct %s: %w", field, err)
	}

	if field == "language" {
		values = splitLanguageSets(values)
	}
	sort.Strings(values)

	return values, nil
}

// fetchSizeRanges buckets the distinct sizes reachable under f into the
// fixed bands and returns the names of the non-empty ones.
func (s *Store) fetchSizeRanges(ctx context.Context, f Filter) ([]string, error) {
	where, args := buildWhere(f, "size")

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT size FROM files `+where+` AND size IS NOT NULL`, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch distinct sizes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(sizeRanges))
	for rows.Next() {
		var size int64
		if err := rows.Scan(&size); err != nil {
			return nil, fmt.Errorf("cannot scan size: %w", err)
		}
		for _, r := range sizeRanges {
			if size >= r.min && (r.max < 0 || size < r.max) {
				counts[r.name]++

				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot iterate sizes: %w", err)
	}

	var names []string
	for _, r := range sizeRanges {
		if counts[r.name] > 0 {
			names = append(names, r.name)
		}
	}

	return names, nil
}

func sizeRangeBounds(name string) (min, max int64, ok bool) {
	for _, r := range sizeRanges {
		if r.name == name {
			return r.min, r.max, true
		}
	}

	return 0, 0, false
}

func splitLanguageSets(sets []string) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, set := range sets {
		for _, code := range strings.Split(set, ",") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}

	return codes
}
