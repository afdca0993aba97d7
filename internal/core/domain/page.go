package domain

import "time"

type PageStatus string

const (
	PageStatusCrawled    PageStatus = "crawled"
	PageStatusProcessing PageStatus = "processing"
	PageStatusIndexed    PageStatus = "indexed"
	PageStatusFailed     PageStatus = "failed"
)

// Page is the ingestion-side record of one crawled web page. The raw body is
// kept in object storage; this struct holds metadata and processing state.
type Page struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	ContentType string     `json:"content_type"`
	StoragePath string     `json:"storage_path"`
	Status      PageStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CrawlReport summarizes one crawl run.
type CrawlReport struct {
	PagesFetched   int `json:"pages_fetched"`
	PagesPublished int `json:"pages_published"`
	PagesSkipped   int `json:"pages_skipped"`
}
