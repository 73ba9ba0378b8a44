package domain

import (
	"iter"
	"net/url"
	"time"
)

// Listing is a lazy, single-use sequence of candidates read from one listing response.
type Listing struct {
	Mode    ListingMode
	BaseURL *url.URL
	// FetchedAt is when the listing response arrived; inline hints resolve against it.
	FetchedAt time.Time

	walk      func(yield func(CandidatePosting) bool, skip func())
	consumed  bool
	malformed int
}

// NewListing wraps a walker; the walker calls skip for every malformed entry it drops.
func NewListing(mode ListingMode, base *url.URL, fetchedAt time.Time, walk func(yield func(CandidatePosting) bool, skip func())) *Listing {
	return &Listing{Mode: mode, BaseURL: base, FetchedAt: fetchedAt, walk: walk}
}

// All yields candidates in source order. A listing cannot be restarted: later calls yield nothing.
func (l *Listing) All() iter.Seq[CandidatePosting] {
	return func(yield func(CandidatePosting) bool) {
		if l.consumed || l.walk == nil {
			return
		}
		l.consumed = true
		l.walk(yield, func() { l.malformed++ })
	}
}

// Malformed is the number of entries skipped so far because they lacked a title or link.
func (l *Listing) Malformed() int {
	return l.malformed
}
