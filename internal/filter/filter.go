// Package filter applies keyword and freshness gates to a run's jobs.
package filter

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"JobWatch/internal/domain"
)

// Criteria are the per-run filter settings. Today must be a calendar date (see domain.DateOf).
type Criteria struct {
	Keywords          []string
	MaxAgeDays        int
	IncludeUnknownAge bool
	Today             time.Time
}

// Result holds the surviving jobs and what was dropped.
type Result struct {
	Jobs          []domain.NormalizedJob
	Duplicates    int
	KeywordMisses int
	TooOld        int
	UnknownAge    int
}

// FilteredOut counts jobs removed by the keyword and age gates.
func (r Result) FilteredOut() int {
	return r.KeywordMisses + r.TooOld + r.UnknownAge
}

// Apply deduplicates by canonical URL (first wins), applies the keyword and age gates
// and orders the result newest first with unknown dates last.
func Apply(jobs []domain.NormalizedJob, c Criteria) Result {
	var res Result
	folded := foldAll(c.Keywords)
	seen := make(map[string]struct{}, len(jobs))
	kept := make([]domain.NormalizedJob, 0, len(jobs))

	for _, job := range jobs {
		if _, dup := seen[job.CanonicalURL]; dup {
			res.Duplicates++
			continue
		}
		seen[job.CanonicalURL] = struct{}{}

		if !matchesFolded(job.Title, folded) {
			res.KeywordMisses++
			continue
		}

		switch {
		case job.PostedDate == nil:
			if !c.IncludeUnknownAge {
				res.UnknownAge++
				continue
			}
		case !IsFresh(*job.PostedDate, c.Today, c.MaxAgeDays):
			res.TooOld++
			continue
		}

		kept = append(kept, job)
	}

	SortNewestFirst(kept)
	res.Jobs = kept
	return res
}

// IsFresh reports whether posted lies within maxAgeDays of today, inclusive.
func IsFresh(posted, today time.Time, maxAgeDays int) bool {
	return domain.DaysBetween(domain.DateOf(posted), domain.DateOf(today)) <= maxAgeDays
}

// MatchesKeywords reports whether title contains any keyword, ignoring case and diacritics.
// An empty keyword list matches everything.
func MatchesKeywords(title string, keywords []string) bool {
	return matchesFolded(title, foldAll(keywords))
}

// SortNewestFirst orders jobs by posted date descending, unknown dates last, keeping input order on ties.
func SortNewestFirst(jobs []domain.NormalizedJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i].PostedDate, jobs[j].PostedDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func matchesFolded(title string, folded []string) bool {
	if len(folded) == 0 {
		return true
	}
	haystack := fold(title)
	for _, kw := range folded {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func foldAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if f := fold(strings.TrimSpace(kw)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// fold lower-cases with Unicode case folding and strips combining marks.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
