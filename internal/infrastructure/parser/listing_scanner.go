package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"JobWatch/internal/domain"
	"JobWatch/internal/scanner"
)

// errNoStructuredItems means the endpoint answered but had nothing usable; the HTML listing is tried next.
var errNoStructuredItems = errors.New("structured endpoint returned no items")

// ListingScanner reads a structured search endpoint when one is known and falls back to listing anchors.
type ListingScanner struct {
	name        string
	htmlOnly    bool
	endpointFor func(src domain.Source) string
	defaults    func(src domain.Source) domain.Source
	logger      *slog.Logger
}

var (
	_ scanner.Scanner   = (*ListingScanner)(nil)
	_ scanner.Defaulter = (*ListingScanner)(nil)
)

// NewGenericScanner uses the source's search_url when set, otherwise the listing HTML.
func NewGenericScanner(logger *slog.Logger) *ListingScanner {
	return &ListingScanner{
		name:        domain.DefaultStrategy,
		endpointFor: func(src domain.Source) string { return src.SearchURL },
		logger:      logger,
	}
}

// NewHTMLScanner only reads listing anchors.
func NewHTMLScanner(logger *slog.Logger) *ListingScanner {
	return &ListingScanner{name: "html", htmlOnly: true, logger: logger}
}

// NewAmazonScanner derives the /en/search.json endpoint from the list URL origin.
func NewAmazonScanner(logger *slog.Logger) *ListingScanner {
	return &ListingScanner{
		name: "amazon",
		endpointFor: func(src domain.Source) string {
			if src.SearchURL != "" {
				return src.SearchURL
			}
			return amazonSearchURL(src.ListURL)
		},
		defaults: func(src domain.Source) domain.Source {
			if src.JobPathPattern == "" {
				src.JobPathPattern = `(?i)^(/[a-z]{2}(-[a-z]{2})?)?/jobs/\d+`
			}
			return src
		},
		logger: logger,
	}
}

// Name identifies the strategy inside the registry.
func (s *ListingScanner) Name() string {
	return s.name
}

// ApplyDefaults fills in strategy-specific source settings.
func (s *ListingScanner) ApplyDefaults(src domain.Source) domain.Source {
	if s.defaults == nil {
		return src
	}
	return s.defaults(src)
}

// Scan returns the structured listing when the endpoint yields items, else the HTML anchors.
func (s *ListingScanner) Scan(ctx context.Context, req scanner.Request) (*domain.Listing, error) {
	if req.Fetcher == nil {
		return nil, fmt.Errorf("no fetcher for source %s", req.Source.Name)
	}

	if !s.htmlOnly && s.endpointFor != nil {
		if endpoint := s.endpointFor(req.Source); endpoint != "" {
			listing, err := s.scanStructured(ctx, req, endpoint)
			if err == nil {
				return listing, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.debug("structured endpoint unusable, falling back to html", "source", req.Source.Name, "endpoint", endpoint, "error", err)
		}
	}

	return s.scanHTML(ctx, req)
}

func amazonSearchURL(listURL string) string {
	u, err := url.Parse(listURL)
	if err != nil || u.Host == "" {
		return ""
	}
	q := url.Values{}
	q.Set("offset", "0")
	q.Set("result_limit", "100")
	q.Set("sort", "recent")
	return fmt.Sprintf("%s://%s/en/search.json?%s", strings.ToLower(u.Scheme), strings.ToLower(u.Host), q.Encode())
}

func (s *ListingScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
