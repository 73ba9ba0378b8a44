package domain

import "time"

// RunCounts aggregates what happened to candidates during a run.
type RunCounts struct {
	Discovered      int `json:"discovered"`
	Malformed       int `json:"malformed"`
	RejectedAsNoise int `json:"rejected_as_noise"`
	Duplicates      int `json:"duplicates"`
	EnrichAttempted int `json:"enrich_attempted"`
	Enriched        int `json:"enriched"`
	DetailFailures  int `json:"detail_failures"`
	DatesFound      int `json:"dates_found"`
	FilteredIn      int `json:"filtered_in"`
	FilteredOut     int `json:"filtered_out"`
	KeywordMisses   int `json:"keyword_misses"`
	TooOld          int `json:"too_old"`
	UnknownAge      int `json:"unknown_age"`
}

// ListingMode says how candidates were obtained.
type ListingMode string

const (
	ListingStructured ListingMode = "structured"
	ListingHTML       ListingMode = "html"
)

// RunReport is the result of one run over one source.
type RunReport struct {
	RunID       string          `json:"run_id"`
	SourceID    int64           `json:"source_id"`
	Source      string          `json:"source"`
	DryRun      bool            `json:"dry_run"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	ListingMode ListingMode     `json:"listing_mode"`
	Keywords    []string        `json:"keywords"`
	MaxAgeDays  int             `json:"max_age_days"`
	Counts      RunCounts       `json:"counts"`
	Jobs        []NormalizedJob `json:"jobs"`
	Delivered   bool            `json:"delivered"`
	Destination string          `json:"destination,omitempty"`
}
