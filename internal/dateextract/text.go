package dateextract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"JobWatch/internal/domain"
)

const (
	// labelWindow caps how much text after a label is inspected.
	labelWindow = 48
	// maxRelativeDays bounds "N unit ago" phrases; anything older is not a posting date.
	maxRelativeDays = 100 * 365
)

var (
	labelRe         = regexp.MustCompile(`(?i)\b(?:date posted|posted(?: on)?|updated(?: on)?|published(?: on)?|listed(?: on)?|added(?: on)?)\s*:?\s*`)
	relativeRe      = regexp.MustCompile(`(?i)\b(\d+|an?|one)\+?\s+(hour|day|week|month)s?\s+ago\b`)
	leadRelativeRe  = regexp.MustCompile(`(?i)^(\d+|an?|one)\+?\s+(hour|day|week|month)s?\s+ago\b`)
	leadDayWordRe   = regexp.MustCompile(`(?i)^(today|yesterday|just now)\b`)
	hiddenTextNodes = map[string]bool{"script": true, "style": true, "noscript": true, "template": true, "head": true}
)

// textStrategy scans the visible page text for posting phrases.
type textStrategy struct{}

func (textStrategy) source() domain.DateSource {
	return domain.DateSourceText
}

func (textStrategy) find(doc *goquery.Document, r ref) (match, bool) {
	text := visibleText(doc)
	if text == "" {
		return match{}, false
	}
	return scanText(text, r)
}

// scanText prefers labeled phrases, then relative phrases anywhere, then absolute dates anywhere.
func scanText(text string, r ref) (match, bool) {
	for _, loc := range labelRe.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		if len(rest) > labelWindow {
			rest = rest[:labelWindow]
		}
		if m, ok := leadingPhrase(rest, r); ok {
			m.raw = strings.TrimSpace(text[loc[0]:loc[1]]) + " " + m.raw
			return m, true
		}
	}

	for _, loc := range relativeRe.FindAllStringSubmatchIndex(text, -1) {
		if d, ok := relative(text[loc[2]:loc[3]], text[loc[4]:loc[5]], r); ok && r.plausible(d) {
			return match{date: d, raw: text[loc[0]:loc[1]]}, true
		}
	}

	if d, phrase, ok := findAbsolute(text, r); ok {
		return match{date: d, raw: phrase}, true
	}
	return match{}, false
}

// leadingPhrase reads a date phrase that starts at the beginning of s.
func leadingPhrase(s string, r ref) (match, bool) {
	if m := leadDayWordRe.FindStringSubmatch(s); m != nil {
		d := r.day
		if strings.EqualFold(m[1], "yesterday") {
			d = d.AddDate(0, 0, -1)
		}
		return match{date: d, raw: m[0]}, true
	}
	if m := leadRelativeRe.FindStringSubmatch(s); m != nil {
		if d, ok := relative(m[1], m[2], r); ok && r.plausible(d) {
			return match{date: d, raw: m[0]}, true
		}
	}
	for _, p := range absoluteDates(s, r.dayFirst) {
		if p.at != 0 {
			break
		}
		if r.plausible(p.date) {
			return match{date: p.date, raw: p.phrase}, true
		}
	}
	return match{}, false
}

// relative resolves "N unit ago" against the fetch time. Months count as 30 days.
// Amounts that do not parse or exceed maxRelativeDays do not match.
func relative(amount, unit string, r ref) (time.Time, bool) {
	n := 1
	switch strings.ToLower(amount) {
	case "a", "an", "one":
	default:
		v, err := strconv.Atoi(amount)
		if err != nil {
			return time.Time{}, false
		}
		n = v
	}

	days := 1
	switch strings.ToLower(unit) {
	case "hour":
		if n > maxRelativeDays*24 {
			return time.Time{}, false
		}
		return domain.DateOf(r.at.Add(-time.Duration(n) * time.Hour)), true
	case "week":
		days = 7
	case "month":
		days = 30
	}
	if n > maxRelativeDays/days {
		return time.Time{}, false
	}
	return r.day.AddDate(0, 0, -days*n), true
}

// visibleText joins body text nodes, skipping non-rendered elements.
func visibleText(doc *goquery.Document) string {
	return NodeText(doc.Find("body"))
}

// NodeText returns the rendered text of sel with text nodes separated by spaces.
func NodeText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hiddenTextNodes[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return normalizeSpace(b.String())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
