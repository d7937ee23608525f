package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgivc/romarchive/internal/app"
	"github.com/jgivc/romarchive/internal/storage/index"
)

const usage = `Usage: romarchive [-c config.yml] <command> [args]

Commands:
  crawl               Crawl the archive and index it
  rescan              Re-derive metadata for every indexed record, then purge
  purge               Remove ignored and random-ID records from the index
  search [flags]      Search the index (see "search -h")
  download <url>...   Download the given URLs
`

func main() {
	cfgFileName := flag.String("c", "config.yml", "Path to config file")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	a, err := app.New(*cfgFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "romarchive: %s\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd := args[0]; cmd {
	case "crawl":
		err = a.Crawl(ctx)
	case "rescan":
		err = a.Rescan(ctx)
	case "purge":
		_, err = a.Purge(ctx)
	case "search":
		err = runSearch(ctx, a, args[1:])
	case "download":
		err = runDownload(ctx, a, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "romarchive: %s\n", err)
		os.Exit(2)
	}
}

func runSearch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var f index.Filter
	fs.StringVar(&f.Platform, "platform", "", "Exact platform name")
	fs.StringVar(&f.Region, "region", "", "Exact region token")
	fs.StringVar(&f.Language, "language", "", "Single language code")
	fs.StringVar(&f.Version, "version", "", "Exact version marker")
	fs.StringVar(&f.TitleContains, "title", "", "Title substring (or regex with -regex)")
	fs.BoolVar(&f.TitleRegex, "regex", false, "Treat -title as a regular expression")
	fs.StringVar(&f.SizeRange, "size", "", "Size bucket (e.g. 100-500MiB)")
	fs.StringVar(&f.SortBy, "sort", "title", "Sort column")
	fs.StringVar(&f.SortOrder, "order", index.SortOrderAsc, "Sort order (ASC or DESC)")
	fs.IntVar(&f.Limit, "limit", 100, "Maximum rows")
	fs.IntVar(&f.Offset, "offset", 0, "Row offset")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.Search(ctx, f)
	if err != nil {
		return err
	}

	for _, rec := range result.Records {
		fmt.Printf("%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.Title, rec.Platform, rec.Region, rec.Language, rec.Size, rec.URL)
	}

	fmt.Printf("\n%d rows\n", len(result.Records))
	fmt.Printf("platforms: %v\n", result.Platforms)
	fmt.Printf("regions:   %v\n", result.Regions)
	fmt.Printf("languages: %v\n", result.Languages)
	fmt.Printf("versions:  %v\n", result.Versions)
	fmt.Printf("sizes:     %v\n", result.SizeRanges)

	return nil
}

func runDownload(ctx context.Context, a *app.App, urls []string) error {
	if len(urls) == 0 {
		return fmt.Errorf("download: no urls given")
	}

	// A second interrupt kills the process; the first one cancels the
	// session so partial files get cleaned up.
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "Cancelling downloads...")
		a.CancelDownloads()
	}()

	return a.Download(urls)
}
