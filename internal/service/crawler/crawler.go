// Package crawler is the breadth-first crawl scheduler. It owns the
// frontier queue and the visited set, filters folders against the ignore
// ruleset and dispatches batches of folders to a worker pool; each worker
// fetches one directory listing and upserts the extracted records.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jgivc/romarchive/internal/common"
	"github.com/jgivc/romarchive/internal/config"
	"github.com/jgivc/romarchive/internal/entity"
	"github.com/jgivc/romarchive/internal/ruleset"
)

type Fetcher interface {
	FetchListing(ctx context.Context, folderURL string) ([]entity.ListingEntry, error)
}

type Store interface {
	Upsert(ctx context.Context, rec *entity.FileRecord) error
}

type Parser interface {
	Parse(urlPath string) (*entity.FileRecord, bool)
}

// ProgressFunc receives free-text progress lines. It must not block; a nil
// sink disables reporting entirely.
type ProgressFunc func(string)

type Crawler struct {
	running atomic.Bool

	fetcher Fetcher
	store   Store
	parser  Parser
	rules   *ruleset.Ruleset
	cfg     *config.CrawlerConfig
	log     *slog.Logger
}

func New(fetcher Fetcher, store Store, parser Parser, rules *ruleset.Ruleset,
	cfg *config.CrawlerConfig, log *slog.Logger) *Crawler {
	return &Crawler{
		fetcher: fetcher,
		store:   store,
		parser:  parser,
		rules:   rules,
		cfg:     cfg,
		log:     log.With(slog.String("item", "Crawler")),
	}
}

// Crawl traverses the archive from the root until the frontier drains.
// Listing fetch failures and upsert failures are swallowed per folder and
// per record; only a second concurrent invocation is an error.
func (c *Crawler) Crawl(ctx context.Context, progress ProgressFunc) error {
	if !c.running.CompareAndSwap(false, true) {
		return common.ErrCrawlAlreadyRunning
	}
	defer c.running.Store(false)

	frontier := []string{""}
	visited := make(map[string]struct{})
	processed := 0
	started := time.Now()

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl interrupted: %w", err)
		}

		var batch []string
		frontier, batch, processed = c.nextBatch(frontier, visited, processed, progress)
		if len(batch) == 0 {
			continue
		}

		batchStart := time.Now()
		discovered := c.processBatch(ctx, batch)

		for _, folder := range discovered {
			if _, ok := visited[folder]; !ok {
				frontier = append(frontier, folder)
			}
		}

		report(progress, fmt.Sprintf("%d folders processed (batch %s, total %s)",
			processed,
			time.Since(batchStart).Round(time.Millisecond),
			time.Since(started).Round(time.Millisecond)))
	}

	report(progress, "Indexing done.")
	c.log.Info("Crawl complete", slog.Int("folders", processed),
		slog.Duration("elapsed", time.Since(started)))

	return nil
}

// nextBatch pulls up to Workers unvisited folders off the frontier.
// Folders matching the ignored-folder substrings are reported and dropped,
// never visited nor retried.
func (c *Crawler) nextBatch(frontier []string, visited map[string]struct{},
	processed int, progress ProgressFunc) ([]string, []string, int) {
	var batch []string

	for len(frontier) > 0 && len(batch) < c.cfg.Workers {
		folder := frontier[0]
		frontier = frontier[1:]

		if _, ok := visited[folder]; ok {
			continue
		}
		visited[folder] = struct{}{}

		decoded := mustUnescape(folder)
		if c.rules.MatchIgnoredFolder(decoded) {
			report(progress, fmt.Sprintf(" *** Ignoring %s", decoded))

			continue
		}

		batch = append(batch, folder)
		processed++
		report(progress, fmt.Sprintf("Processing %s", decoded))
	}

	return frontier, batch, processed
}

// processBatch dispatches one worker per folder and collects every newly
// discovered sub-folder. Fetch errors yield zero children for that folder.
func (c *Crawler) processBatch(ctx context.Context, batch []string) []string {
	out := make(chan []string, len(batch))

	var wg sync.WaitGroup
	wg.Add(len(batch))
	for _, folder := range batch {
		go func(folder string) {
			defer wg.Done()
			out <- c.processFolder(ctx, folder)
		}(folder)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	var discovered []string
	for folders := range out {
		discovered = append(discovered, folders...)
	}

	return discovered
}

func (c *Crawler) processFolder(ctx context.Context, folder string) []string {
	folderURL := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(folder, "/")
	if !strings.HasSuffix(folderURL, "/") {
		folderURL += "/"
	}

	entries, err := c.fetcher.FetchListing(ctx, folderURL)
	if err != nil {
		c.log.Debug("Cannot fetch listing", slog.String("folder", folder), slog.Any("error", err))

		return nil
	}

	var folders []string
	for _, entry := range entries {
		decoded := strings.ToLower(mustUnescape(strings.Trim(entry.Name, "/")))
		if c.rules.IsIgnoredBaseFolder(decoded) {
			continue
		}

		if entry.IsFolder() {
			folders = append(folders, folder+entry.Name)

			continue
		}

		rec, ok := c.parser.Parse(folder + entry.Name)
		if !ok {
			continue
		}

		if size, err := entry.SizeBytes(); err == nil {
			rec.Size = size
		}
		rec.LastModified = entry.LastModified

		if err := c.store.Upsert(ctx, rec); err != nil {
			c.log.Debug("Cannot upsert record", slog.String("url", rec.URL), slog.Any("error", err))
		}
	}

	return folders
}

func report(progress ProgressFunc, line string) {
	if progress != nil {
		progress(line)
	}
}

func mustUnescape(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}

	return decoded
}
