package dateextract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"JobWatch/internal/domain"
)

// metaKeys lists meta tag names in priority order; publication beats modification.
var metaKeys = []string{
	"article:published_time",
	"og:published_time",
	"dateposted",
	"date",
	"pubdate",
	"publish_date",
	"publishdate",
	"dc.date",
	"dc.date.issued",
	"article:modified_time",
	"og:updated_time",
}

type metaStrategy struct{}

func (metaStrategy) source() domain.DateSource {
	return domain.DateSourceMeta
}

func (metaStrategy) find(doc *goquery.Document, r ref) (match, bool) {
	values := map[string]string{}
	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		for _, attr := range []string{"property", "name", "itemprop"} {
			key, ok := s.Attr(attr)
			if !ok {
				continue
			}
			key = strings.ToLower(strings.TrimSpace(key))
			if _, seen := values[key]; !seen {
				values[key] = content
			}
		}
	})

	for _, key := range metaKeys {
		value, ok := values[key]
		if !ok {
			continue
		}
		if d, err := parseValue(value, r); err == nil && r.plausible(d) {
			return match{date: d, raw: value}, true
		}
	}
	return match{}, false
}
