// Package dateextract recovers a best-effort publication date from a job detail page.
package dateextract

import (
	"bytes"
	"time"

	"github.com/PuerkitoBio/goquery"

	"JobWatch/internal/domain"
)

// Options configure how ambiguous values are read.
type Options struct {
	// Location is the timezone the scrape runs in; relative phrases resolve against it.
	Location *time.Location
	// DayFirst reads NN/NN/YYYY as day/month.
	DayFirst bool
}

type match struct {
	date time.Time
	raw  string
}

// strategy looks for a date in a parsed page. Strategies never share state.
type strategy interface {
	source() domain.DateSource
	find(doc *goquery.Document, r ref) (match, bool)
}

// Extractor runs its strategies in priority order; the first one that yields a date wins.
type Extractor struct {
	loc        *time.Location
	dayFirst   bool
	strategies []strategy
}

// New builds an extractor with the structured, meta and free-text strategies.
func New(opts Options) *Extractor {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{
		loc:      loc,
		dayFirst: opts.DayFirst,
		strategies: []strategy{
			structuredStrategy{},
			metaStrategy{},
			textStrategy{},
		},
	}
}

// Extract returns the posting date found in content, or a none result when every strategy fails.
func (e *Extractor) Extract(content []byte, fetchedAt time.Time) domain.DateResult {
	if len(content) == 0 {
		return domain.NoDate()
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return domain.NoDate()
	}

	r := newRef(fetchedAt, e.loc, e.dayFirst)
	for _, s := range e.strategies {
		if m, ok := s.find(doc, r); ok {
			d := m.date
			return domain.DateResult{Date: &d, Source: s.source(), Raw: m.raw}
		}
	}
	return domain.NoDate()
}

// ResolveHint turns a date hint captured on the listing into a date.
// Structured hints are machine values; text hints go through the free-text rules.
func (e *Extractor) ResolveHint(hint string, source domain.DateSource, fetchedAt time.Time) domain.DateResult {
	if hint == "" {
		return domain.NoDate()
	}
	r := newRef(fetchedAt, e.loc, e.dayFirst)

	if source == domain.DateSourceStructured {
		if d, err := parseValue(hint, r); err == nil && r.plausible(d) {
			return domain.DateResult{Date: &d, Source: domain.DateSourceStructured, Raw: hint}
		}
	}
	if m, ok := scanText(hint, r); ok {
		d := m.date
		return domain.DateResult{Date: &d, Source: domain.DateSourceText, Raw: m.raw}
	}
	return domain.NoDate()
}

// FindPhrase returns the first date-like phrase in text, unresolved, or an empty string.
func FindPhrase(text string) string {
	open := ref{at: time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)}
	open.day = open.at
	if m, ok := scanText(normalizeSpace(text), open); ok {
		return m.raw
	}
	return ""
}
