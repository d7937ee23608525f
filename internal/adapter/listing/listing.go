// Package listing fetches and parses remote directory listings. The
// archive serves a fixed HTML format: a table with id="list", one header
// row, then one row per entry with link/size/date cells.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jgivc/romarchive/internal/entity"
)

type Client struct {
	httpClient *http.Client
	log        *slog.Logger
}

func New(timeout time.Duration, log *slog.Logger) *Client {
	return NewWithHTTPClient(&http.Client{Timeout: timeout}, log)
}

func NewWithHTTPClient(httpClient *http.Client, log *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		log:        log.With(slog.String("item", "ListingClient")),
	}
}

// FetchListing retrieves the directory listing at folderURL. Self-links
// ("../", "./") are excluded. Network and HTTP errors are returned to the
// caller, which treats them as an empty folder.
func (c *Client) FetchListing(ctx context.Context, folderURL string) ([]entity.ListingEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, folderURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build listing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot fetch listing: unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot parse listing: %w", err)
	}

	var entries []entity.ListingEntry
	doc.Find(`table#list tr`).Each(func(i int, row *goquery.Selection) {
		if i == 0 { // header row
			return
		}

		href, exists := row.Find("td.link a").Attr("href")
		if !exists || href == "../" || href == "./" {
			return
		}

		entries = append(entries, entity.ListingEntry{
			Name:         href,
			Size:         strings.TrimSpace(row.Find("td.size").Text()),
			LastModified: strings.TrimSpace(row.Find("td.date").Text()),
		})
	})

	return entries, nil
}
