package common

import "fmt"

var (
	ErrCrawlAlreadyRunning    = fmt.Errorf("crawl process has already started")
	ErrDownloadAlreadyRunning = fmt.Errorf("download process has already started")
	ErrInvalidSizeText        = fmt.Errorf("invalid size text")
)
