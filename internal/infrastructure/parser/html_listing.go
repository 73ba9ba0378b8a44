package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"JobWatch/internal/dateextract"
	"JobWatch/internal/domain"
	"JobWatch/internal/linknorm"
	"JobWatch/internal/scanner"
)

const blockSelector = "li, tr, article, section, div"

func (s *ListingScanner) scanHTML(ctx context.Context, req scanner.Request) (*domain.Listing, error) {
	page, err := req.Fetcher.Fetch(ctx, req.Source.ListURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	base, err := url.Parse(page.URL)
	if err != nil || page.URL == "" {
		base, err = url.Parse(req.Source.ListURL)
		if err != nil {
			return nil, fmt.Errorf("parse list url: %w", err)
		}
	}

	rules := req.Rules
	return domain.NewListing(domain.ListingHTML, base, page.FetchedAt, func(yield func(domain.CandidatePosting) bool, skip func()) {
		doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if !rules.LooksLikeJob(href, base) {
				return true
			}
			candidate, ok := candidateFromAnchor(a, href, rules, base)
			if !ok {
				skip()
				return true
			}
			return yield(candidate)
		})
	}), nil
}

func candidateFromAnchor(a *goquery.Selection, href string, rules linknorm.Rules, base *url.URL) (domain.CandidatePosting, bool) {
	title := collapse(a.Text())
	if title == "" {
		for _, attr := range []string{"title", "aria-label"} {
			if v, ok := a.Attr(attr); ok && collapse(v) != "" {
				title = collapse(v)
				break
			}
		}
	}
	if title == "" {
		return domain.CandidatePosting{}, false
	}

	var hint string
	if block := a.Closest(blockSelector); block.Length() > 0 && jobLinksIn(block, rules, base) == 1 {
		hint = dateextract.FindPhrase(dateextract.NodeText(block))
	}

	return domain.CandidatePosting{
		Title:          title,
		URL:            strings.TrimSpace(href),
		InlineDateHint: hint,
		HintSource:     domain.DateSourceText,
	}, true
}

// jobLinksIn counts distinct job links inside block; a block shared by several postings carries no hint.
func jobLinksIn(block *goquery.Selection, rules linknorm.Rules, base *url.URL) int {
	seen := map[string]struct{}{}
	block.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if rules.LooksLikeJob(href, base) {
			seen[strings.TrimSpace(href)] = struct{}{}
		}
	})
	return len(seen)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
