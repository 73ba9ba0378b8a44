package dateextract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JobWatch/internal/domain"
)

var fetchedAt = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

func page(head, body string) []byte {
	return []byte("<html><head>" + head + "</head><body>" + body + "</body></html>")
}

func requireDate(t *testing.T, res domain.DateResult, want string, source domain.DateSource) {
	t.Helper()
	require.NotNil(t, res.Date, "expected a date")
	assert.Equal(t, want, res.Date.Format(domain.DayLayout))
	assert.Equal(t, source, res.Source)
}

func TestExtractStructuredBeatsText(t *testing.T) {
	t.Parallel()

	content := page(
		`<script type="application/ld+json">{"@context":"https://schema.org","@type":"JobPosting","title":"SDE","datePosted":"2025-06-01"}</script>`,
		`<p>Posted 2 days ago</p>`,
	)
	res := New(Options{}).Extract(content, fetchedAt)
	requireDate(t, res, "2025-06-01", domain.DateSourceStructured)
	assert.Equal(t, "2025-06-01", res.Raw)
}

func TestExtractRelativeText(t *testing.T) {
	t.Parallel()

	res := New(Options{}).Extract(page("", `<div><span>Posted</span><span>2 days ago</span></div>`), fetchedAt)
	requireDate(t, res, "2025-06-13", domain.DateSourceText)
	assert.Equal(t, "Posted 2 days ago", res.Raw)
}

func TestExtractStructuredGraphPrefersJobPosting(t *testing.T) {
	t.Parallel()

	content := page(`<script type="application/ld+json">
	{"@graph":[
	  {"@type":"WebPage","datePublished":"2024-01-01"},
	  {"@type":"JobPosting","datePosted":"2025-06-09T14:00:00-07:00"}
	]}</script>`, "")
	res := New(Options{}).Extract(content, fetchedAt)
	requireDate(t, res, "2025-06-09", domain.DateSourceStructured)
}

func TestExtractMicrodata(t *testing.T) {
	t.Parallel()

	content := page("", `<div itemscope itemtype="https://schema.org/JobPosting"><time itemprop="datePosted" datetime="2025-06-07">June 7</time></div>`)
	res := New(Options{}).Extract(content, fetchedAt)
	requireDate(t, res, "2025-06-07", domain.DateSourceStructured)
}

func TestExtractMeta(t *testing.T) {
	t.Parallel()

	content := page(
		`<meta property="og:updated_time" content="2025-06-12T00:00:00Z"><meta property="article:published_time" content="2025-06-10T08:00:00+02:00">`,
		`<p>Posted 1 day ago</p>`,
	)
	res := New(Options{}).Extract(content, fetchedAt)
	requireDate(t, res, "2025-06-10", domain.DateSourceMeta)
}

func TestExtractFallsThroughImplausibleDates(t *testing.T) {
	t.Parallel()

	content := page(
		`<script type="application/ld+json">{"@type":"JobPosting","datePosted":"2030-01-01"}</script>`,
		`<p>Posted 3 days ago</p>`,
	)
	res := New(Options{}).Extract(content, fetchedAt)
	requireDate(t, res, "2025-06-12", domain.DateSourceText)
}

func TestExtractNone(t *testing.T) {
	t.Parallel()

	content := page(`<script type="application/ld+json">{not json</script>`,
		`<script>var label = "Posted 1 day ago";</script><p>Join our team.</p><p>Posted 02/30/2025</p>`)
	res := New(Options{}).Extract(content, fetchedAt)
	assert.Nil(t, res.Date)
	assert.Equal(t, domain.DateSourceNone, res.Source)

	empty := New(Options{}).Extract(nil, fetchedAt)
	assert.Equal(t, domain.DateSourceNone, empty.Source)
}

func TestExtractRejectsOversizedRelativeAmounts(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		"Posted 99999999999999999999 days ago",
		"Posted 3000000 hours ago",
		"Posted 5000 months ago",
	} {
		res := New(Options{}).Extract(page("", "<p>"+body+"</p>"), fetchedAt)
		assert.Nil(t, res.Date, body)
		assert.Equal(t, domain.DateSourceNone, res.Source, body)
	}

	_, ok := relative("36500", "day", newRef(fetchedAt, time.UTC, false))
	assert.True(t, ok)
	_, ok = relative("36501", "day", newRef(fetchedAt, time.UTC, false))
	assert.False(t, ok)
}

func TestExtractTextPhrases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		body     string
		at       time.Time
		dayFirst bool
		want     string
	}{
		{name: "yesterday", body: "Posted: Yesterday", at: fetchedAt, want: "2025-06-14"},
		{name: "today", body: "Posted today", at: fetchedAt, want: "2025-06-15"},
		{name: "hours cross midnight", body: "Posted 5 hours ago", at: time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC), want: "2025-06-14"},
		{name: "an hour", body: "Updated an hour ago", at: fetchedAt, want: "2025-06-15"},
		{name: "weeks", body: "Posted 2 weeks ago", at: fetchedAt, want: "2025-06-01"},
		{name: "month is thirty days", body: "Posted 1 month ago", at: fetchedAt, want: "2025-05-16"},
		{name: "capped days", body: "Apply now. 30+ days ago", at: fetchedAt, want: "2025-05-16"},
		{name: "month name", body: "Date posted: Jun 3, 2025", at: fetchedAt, want: "2025-06-03"},
		{name: "day month", body: "Published 4 June 2025", at: fetchedAt, want: "2025-06-04"},
		{name: "iso anywhere", body: "Reference 2025-06-11 role", at: fetchedAt, want: "2025-06-11"},
		{name: "month first slash", body: "Posted on 03/06/2025", at: fetchedAt, want: "2025-03-06"},
		{name: "day first slash", body: "Posted on 03/06/2025", at: fetchedAt, dayFirst: true, want: "2025-06-03"},
		{name: "unambiguous day first", body: "Posted 25/05/2025", at: fetchedAt, want: "2025-05-25"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := New(Options{DayFirst: tc.dayFirst}).Extract(page("", "<p>"+tc.body+"</p>"), tc.at)
			requireDate(t, res, tc.want, domain.DateSourceText)
		})
	}
}

func TestExtractUsesScrapeTimezone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+5", 5*3600)
	at := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	res := New(Options{Location: loc}).Extract(page("", "<p>Posted today</p>"), at)
	requireDate(t, res, "2025-06-16", domain.DateSourceText)
}

func TestResolveHint(t *testing.T) {
	t.Parallel()

	ex := New(Options{})

	res := ex.ResolveHint("2025-06-11", domain.DateSourceStructured, fetchedAt)
	requireDate(t, res, "2025-06-11", domain.DateSourceStructured)

	res = ex.ResolveHint("1749513600000", domain.DateSourceStructured, fetchedAt)
	requireDate(t, res, "2025-06-10", domain.DateSourceStructured)

	res = ex.ResolveHint("Posted 3 days ago", domain.DateSourceText, fetchedAt)
	requireDate(t, res, "2025-06-12", domain.DateSourceText)

	res = ex.ResolveHint("sometime soon", domain.DateSourceStructured, fetchedAt)
	assert.Nil(t, res.Date)
}

func TestFindPhrase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Posted 3 days ago", FindPhrase("Software Engineer\n  Seattle, WA   Posted 3 days ago"))
	assert.Equal(t, "October 2, 2025", FindPhrase("Data Scientist October 2, 2025"))
	assert.Equal(t, "", FindPhrase("Warehouse Associate, Austin"))
}
