package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"JobWatch/internal/domain"
	"JobWatch/internal/linknorm"
	"JobWatch/internal/scanner"
)

// JMESPath expressions applied to search endpoint payloads.
const (
	itemsExpr    = "jobs || search_results || results || hits || items || data"
	titleExpr    = "title || job_title || name"
	linkExpr     = "job_path || absolute_url || url || apply_url || url_next_step"
	dateExpr     = "posted_date || posting_date || posted_at || date_posted || created || updated_at"
	locationExpr = "location.name || location || normalized_location || city"
)

func (s *ListingScanner) scanStructured(ctx context.Context, req scanner.Request, endpoint string) (*domain.Listing, error) {
	page, err := req.Fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch endpoint: %w", err)
	}

	var payload any
	if err := json.Unmarshal(page.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode endpoint: %w", err)
	}

	items, err := structuredItems(payload)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errNoStructuredItems
	}

	base, err := url.Parse(req.Source.ListURL)
	if err != nil {
		return nil, fmt.Errorf("parse list url: %w", err)
	}
	if !slices.ContainsFunc(items, func(item any) bool { return usableItem(item, req.Rules, base) }) {
		return nil, errNoStructuredItems
	}

	s.debug("structured endpoint items", "source", req.Source.Name, "items", len(items))

	return domain.NewListing(domain.ListingStructured, base, page.FetchedAt, func(yield func(domain.CandidatePosting) bool, skip func()) {
		for _, item := range items {
			candidate, ok := candidateFromItem(item)
			if !ok {
				skip()
				continue
			}
			if !yield(candidate) {
				return
			}
		}
	}), nil
}

// structuredItems locates the job array: the first non-empty well-known list, then a top-level
// array, then the first top-level value (by key) holding a list of objects.
func structuredItems(payload any) ([]any, error) {
	found, err := jmespath.Search(itemsExpr, payload)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	if list, ok := found.([]any); ok && len(list) > 0 {
		return list, nil
	}

	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if list, ok := v[key].([]any); ok && slices.ContainsFunc(list, isObject) {
				return list, nil
			}
		}
	}
	return nil, nil
}

func isObject(item any) bool {
	_, ok := item.(map[string]any)
	return ok
}

// usableItem reports whether item would survive link normalization.
func usableItem(item any, rules linknorm.Rules, base *url.URL) bool {
	candidate, ok := candidateFromItem(item)
	if !ok {
		return false
	}
	_, err := rules.Normalize(candidate.URL, base)
	return err == nil
}

func candidateFromItem(item any) (domain.CandidatePosting, bool) {
	if !isObject(item) {
		return domain.CandidatePosting{}, false
	}

	title := strings.Join(strings.Fields(searchString(titleExpr, item)), " ")
	link := strings.TrimSpace(searchString(linkExpr, item))
	if title == "" || link == "" {
		return domain.CandidatePosting{}, false
	}

	return domain.CandidatePosting{
		Title:          title,
		URL:            link,
		InlineDateHint: searchString(dateExpr, item),
		HintSource:     domain.DateSourceStructured,
		Location:       searchString(locationExpr, item),
	}, true
}

// searchString evaluates expr and keeps scalar results only.
func searchString(expr string, data any) string {
	value, err := jmespath.Search(expr, data)
	if err != nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
