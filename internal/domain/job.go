package domain

import "time"

// DateSource records which extraction strategy produced a posting date.
type DateSource string

const (
	DateSourceStructured DateSource = "structured"
	DateSourceMeta       DateSource = "meta"
	DateSourceText       DateSource = "text"
	DateSourceNone       DateSource = "none"
)

// CandidatePosting is a job as discovered on a listing, before normalization.
type CandidatePosting struct {
	Title          string
	URL            string
	InlineDateHint string
	HintSource     DateSource
	Location       string
}

// NormalizedJob is a candidate with a canonical URL and a best-effort posting date.
type NormalizedJob struct {
	CanonicalURL string     `json:"canonical_url"`
	Title        string     `json:"title"`
	Location     string     `json:"location,omitempty"`
	PostedDate   *time.Time `json:"posted_date,omitempty"`
	DateSource   DateSource `json:"date_source"`
	DateText     string     `json:"date_text,omitempty"`
}

// PostedDay renders the posting date as YYYY-MM-DD, or an empty string when unknown.
func (j NormalizedJob) PostedDay() string {
	if j.PostedDate == nil {
		return ""
	}
	return j.PostedDate.Format(DayLayout)
}

// DateResult is the outcome of date extraction for a single page.
type DateResult struct {
	Date   *time.Time
	Source DateSource
	Raw    string
}

// Found reports whether a date was recovered.
func (r DateResult) Found() bool {
	return r.Date != nil
}

// NoDate is the result returned when every strategy fails.
func NoDate() DateResult {
	return DateResult{Source: DateSourceNone}
}

// DayLayout is the calendar date layout used across reports.
const DayLayout = "2006-01-02"

// DateOf drops the time of day, keeping the calendar date as seen in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from earlier to later; both must come from DateOf.
func DaysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}

// Page is a fetched document.
type Page struct {
	URL       string
	Status    int
	Body      []byte
	FetchedAt time.Time
}
