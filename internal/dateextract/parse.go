package dateextract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"JobWatch/internal/domain"
)

// futureSlack bounds how far past the fetch date a parsed date may lie before it is treated as noise.
const futureSlack = 2

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
	"2006/01/02",
}

const monthNames = `Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?`

var (
	isoDateRe    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	monthFirstRe = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayFirstRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthNames + `)\.?,?\s+(\d{4})\b`)
	slashDateRe  = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})[/.](\d{4})\b`)
	epochRe      = regexp.MustCompile(`^\d{10}(\d{3})?$`)
)

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ref is the clock a page was fetched with, expressed in the scrape's timezone.
type ref struct {
	at       time.Time
	day      time.Time
	dayFirst bool
}

func newRef(fetchedAt time.Time, loc *time.Location, dayFirst bool) ref {
	local := fetchedAt.In(loc)
	return ref{at: local, day: domain.DateOf(local), dayFirst: dayFirst}
}

// plausible rejects dates lying implausibly far in the future.
func (r ref) plausible(d time.Time) bool {
	return !d.After(r.day.AddDate(0, 0, futureSlack))
}

// parseValue reads a machine-oriented date value (JSON-LD, meta content, endpoint field).
func parseValue(raw string, r ref) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty value")
	}

	if epochRe.MatchString(value) {
		n, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			if len(value) == 13 {
				return domain.DateOf(time.UnixMilli(n).In(r.at.Location())), nil
			}
			return domain.DateOf(time.Unix(n, 0).In(r.at.Location())), nil
		}
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return domain.DateOf(t), nil
		}
	}

	if d, _, ok := findAbsolute(value, r); ok {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// datedPhrase is an absolute date found in free text.
type datedPhrase struct {
	at     int
	date   time.Time
	phrase string
}

// absoluteDates returns every valid absolute date in text, ordered by position.
func absoluteDates(text string, dayFirst bool) []datedPhrase {
	var found []datedPhrase
	add := func(m []int, d time.Time, ok bool) {
		if ok {
			found = append(found, datedPhrase{at: m[0], date: d, phrase: text[m[0]:m[1]]})
		}
	}

	for _, m := range isoDateRe.FindAllStringSubmatchIndex(text, -1) {
		d, ok := civil(atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]]), atoi(text[m[6]:m[7]]))
		add(m, d, ok)
	}
	for _, m := range monthFirstRe.FindAllStringSubmatchIndex(text, -1) {
		mo := monthByPrefix[strings.ToLower(text[m[2]:m[2]+3])]
		d, ok := civil(atoi(text[m[6]:m[7]]), int(mo), atoi(text[m[4]:m[5]]))
		add(m, d, ok)
	}
	for _, m := range dayFirstRe.FindAllStringSubmatchIndex(text, -1) {
		mo := monthByPrefix[strings.ToLower(text[m[4]:m[4]+3])]
		d, ok := civil(atoi(text[m[6]:m[7]]), int(mo), atoi(text[m[2]:m[3]]))
		add(m, d, ok)
	}
	for _, m := range slashDateRe.FindAllStringSubmatchIndex(text, -1) {
		d, err := slashDate(atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]]), atoi(text[m[6]:m[7]]), dayFirst)
		add(m, d, err == nil)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].at < found[j].at })
	return found
}

// findAbsolute returns the first plausible absolute date in text.
func findAbsolute(text string, r ref) (time.Time, string, bool) {
	for _, p := range absoluteDates(text, r.dayFirst) {
		if r.plausible(p.date) {
			return p.date, p.phrase, true
		}
	}
	return time.Time{}, "", false
}

// slashDate reads NN/NN/YYYY as month/day unless dayFirst is set or the first number cannot be a month.
func slashDate(a, b, year int, dayFirst bool) (time.Time, error) {
	month, day := a, b
	if dayFirst || a > 12 {
		month, day = b, a
	}
	if t, ok := civil(year, month, day); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %02d/%02d/%04d", domain.ErrDateParseAmbiguous, a, b, year)
}

// civil builds a calendar date, rejecting overflowing components such as 31 February.
func civil(year, month, day int) (time.Time, bool) {
	if year < 1990 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
