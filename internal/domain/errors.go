package domain

import "errors"

var (
	// ErrSourceUnreachable means the listing could not be fetched or parsed; the run produces no report.
	ErrSourceUnreachable = errors.New("source unreachable")
	// ErrDetailFetchFailed marks a detail page that could not be fetched; the posting keeps an unknown date.
	ErrDetailFetchFailed = errors.New("detail fetch failed")
	// ErrDateParseAmbiguous is raised inside a date strategy and never leaves the extractor.
	ErrDateParseAmbiguous = errors.New("date parse ambiguous")
	// ErrDeliveryFailed is returned alongside the report when the digest could not be handed off.
	ErrDeliveryFailed = errors.New("delivery failed")

	ErrSourceNotFound = errors.New("source not found")
	ErrSourceExists   = errors.New("source already exists")
	ErrInvalidSource  = errors.New("invalid source")
	ErrRunInProgress  = errors.New("run already in progress")
	ErrNoRecipient    = errors.New("no recipient configured")
)
