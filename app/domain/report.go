package domain

import "time"

// ReportRecord is one append-only row in the publish_reports table. Data is
// the JSON-serialized PublishOperation plus the raw API response.
type ReportRecord struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	User        string    `json:"user"`
	Lang        string    `json:"lang"`
	SourceTitle string    `json:"sourcetitle"`
	Result      string    `json:"result"`
	Data        string    `json:"data"`
}

// ReportFilters carries the recognized publish_reports query parameters.
// Values may be literals or one of the sentinels understood by the store:
// "not_empty"/"not_mt", "empty"/"mt", ">0", "all".
type ReportFilters map[string]string
