package dateextract

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"JobWatch/internal/domain"
)

var structuredKeys = []string{"datePosted", "datePublished", "dateModified"}

// structuredStrategy reads JSON-LD blocks and schema.org microdata.
type structuredStrategy struct{}

func (structuredStrategy) source() domain.DateSource {
	return domain.DateSourceStructured
}

func (structuredStrategy) find(doc *goquery.Document, r ref) (match, bool) {
	var objects []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return
		}
		collectObjects(payload, &objects)
	})

	sort.SliceStable(objects, func(i, j int) bool {
		return isJobPosting(objects[i]) && !isJobPosting(objects[j])
	})

	for _, key := range structuredKeys {
		for _, obj := range objects {
			value, ok := obj[key].(string)
			if !ok {
				continue
			}
			if d, err := parseValue(value, r); err == nil && r.plausible(d) {
				return match{date: d, raw: value}, true
			}
		}
	}

	var (
		found match
		ok    bool
	)
	doc.Find(`[itemprop="datePosted"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value := firstAttr(s, "content", "datetime")
		if value == "" {
			value = strings.TrimSpace(s.Text())
		}
		d, err := parseValue(value, r)
		if err != nil || !r.plausible(d) {
			return true
		}
		found, ok = match{date: d, raw: value}, true
		return false
	})
	return found, ok
}

func collectObjects(node any, out *[]map[string]any) {
	switch v := node.(type) {
	case map[string]any:
		*out = append(*out, v)
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			collectObjects(v[key], out)
		}
	case []any:
		for _, child := range v {
			collectObjects(child, out)
		}
	}
}

func isJobPosting(obj map[string]any) bool {
	switch t := obj["@type"].(type) {
	case string:
		return strings.EqualFold(t, "JobPosting")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "JobPosting") {
				return true
			}
		}
	}
	return false
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
