package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jgivc/romarchive/internal/adapter/listing"
	"github.com/jgivc/romarchive/internal/config"
	"github.com/jgivc/romarchive/internal/extract"
	"github.com/jgivc/romarchive/internal/ruleset"
	"github.com/jgivc/romarchive/internal/service/crawler"
	"github.com/jgivc/romarchive/internal/service/download"
	"github.com/jgivc/romarchive/internal/storage/index"
)

// App wires the configured components together for the CLI.
type App struct {
	cfg        *config.Config
	log        *slog.Logger
	rules      *ruleset.Ruleset
	extractor  *extract.Extractor
	store      *index.Store
	crawler    *crawler.Crawler
	downloader *download.Manager
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}

	lo := &slog.HandlerOptions{}
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s", cfg.LogLevel)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, lo))

	rules := ruleset.New(&cfg.RulesetConfig)
	extractor := extract.New(cfg.CrawlerConfig.BaseURL, rules)

	store, err := index.New(&cfg.StoreConfig, log)
	if err != nil {
		return nil, fmt.Errorf("cannot open index store: %w", err)
	}

	fetcher := listing.New(cfg.CrawlerConfig.FetchTimeout, log)

	return &App{
		cfg:        cfg,
		log:        log,
		rules:      rules,
		extractor:  extractor,
		store:      store,
		crawler:    crawler.New(fetcher, store, extractor, rules, &cfg.CrawlerConfig, log),
		downloader: download.New(&cfg.DownloadConfig, log),
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

// Crawl traverses the archive and indexes it, printing progress lines.
func (a *App) Crawl(ctx context.Context) error {
	return a.crawler.Crawl(ctx, func(line string) {
		fmt.Println(line)
	})
}

// Rescan re-derives metadata for every stored record and then purges
// ignored content.
func (a *App) Rescan(ctx context.Context) error {
	err := a.store.Rescan(ctx, a.cfg.CrawlerConfig.BaseURL, a.extractor, func(current, total int) {
		fmt.Printf("Rescanned %d/%d records\n", current, total)
	})
	if err != nil {
		return fmt.Errorf("cannot rescan index: %w", err)
	}

	if _, err := a.Purge(ctx); err != nil {
		return err
	}

	fmt.Println("Rescan and update complete.")

	return nil
}

// Purge removes every record matching the ignore ruleset or the random-ID
// heuristic.
func (a *App) Purge(ctx context.Context) (int, error) {
	deleted, err := a.store.Purge(ctx, a.rules, func(line string) {
		fmt.Println(line)
	})
	if err != nil {
		return deleted, fmt.Errorf("cannot purge index: %w", err)
	}

	return deleted, nil
}

func (a *App) Search(ctx context.Context, f index.Filter) (*index.Result, error) {
	return a.store.AdvancedSearch(ctx, f)
}

// Download enqueues the URLs and runs the download session to completion.
func (a *App) Download(urls []string) error {
	for _, u := range urls {
		depth := a.downloader.Enqueue(u)
		a.log.Info("Enqueued", slog.String("url", u), slog.Int("queue_depth", depth))
	}

	return a.downloader.Start(func(jobIndex int, url string, downloaded, total int64) {
		fmt.Fprintf(os.Stderr, "[%d] %s: %d/%d bytes\n", jobIndex, url, downloaded, total)
	})
}

// CancelDownloads aborts the running download session.
func (a *App) CancelDownloads() {
	a.downloader.Cancel()
}
