package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"JobWatch/internal/domain"
	"JobWatch/internal/infrastructure/httpclient"
	"JobWatch/internal/scanner"
)

const listingHTML = `
<html><body>
<ul>
  <li><a href="/jobs/101/software-engineer">Software Engineer</a><span>Posted 3 days ago</span></li>
  <li><a href="/jobs/102"><img src="logo.png"></a></li>
  <li><a href="/jobs/103" aria-label="Data Engineer"></a></li>
  <li><a href="https://evil.com/jobs/9">Evil Corp Role</a></li>
</ul>
<nav><a href="/about">About</a><a href="mailto:jobs@acme.com">Mail us</a><a href="#top">Top</a></nav>
</body></html>`

const searchJSON = `{
  "hits": 3,
  "jobs": [
    {"title": "Software Development Engineer", "job_path": "/en/jobs/2890123/sde", "posted_date": "October 31, 2025", "location": "Seattle, WA"},
    {"title": "", "job_path": "/en/jobs/2890124/blank"},
    "not an object",
    {"job_title": "Applied Scientist", "absolute_url": "https://acme.com/en/jobs/2890125", "posted_at": 1749513600000, "location": {"name": "Austin"}}
  ]
}`

func newServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w)
	}))
	t.Cleanup(server.Close)
	return server
}

func body(s string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(s))
	}
}

func fetchListing(t *testing.T, src domain.Source) (*domain.Listing, error) {
	t.Helper()

	reg := scanner.NewRegistry()
	reg.Register(NewGenericScanner(nil))
	reg.Register(NewHTMLScanner(nil))
	reg.Register(NewAmazonScanner(nil))
	source := NewStrategySource(reg, nil)

	prepared, err := source.Prepare(src)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	session := httpclient.NewTransport(httpclient.Options{}, nil).NewSession(prepared)
	return source.FetchListing(context.Background(), session, prepared)
}

func collect(l *domain.Listing) []domain.CandidatePosting {
	var out []domain.CandidatePosting
	for c := range l.All() {
		out = append(out, c)
	}
	return out
}

func TestScanHTMLListing(t *testing.T) {
	t.Parallel()

	server := newServer(t, map[string]func(http.ResponseWriter){"/careers": body(listingHTML)})
	src := domain.NewSource("acme", server.URL+"/careers")

	listing, err := fetchListing(t, src)
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	if listing.Mode != domain.ListingHTML {
		t.Fatalf("expected html mode, got %s", listing.Mode)
	}

	got := collect(listing)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Software Engineer" || got[0].URL != "/jobs/101/software-engineer" {
		t.Fatalf("unexpected first candidate: %+v", got[0])
	}
	if got[0].InlineDateHint != "Posted 3 days ago" || got[0].HintSource != domain.DateSourceText {
		t.Fatalf("unexpected hint: %q (%s)", got[0].InlineDateHint, got[0].HintSource)
	}
	if got[1].Title != "Data Engineer" || got[1].InlineDateHint != "" {
		t.Fatalf("unexpected aria-label candidate: %+v", got[1])
	}
	if got[2].URL != "https://evil.com/jobs/9" {
		t.Fatalf("expected off-domain link to reach the normalizer, got %+v", got[2])
	}
	if listing.Malformed() != 1 {
		t.Fatalf("expected 1 malformed entry, got %d", listing.Malformed())
	}
	if listing.BaseURL.String() != server.URL+"/careers" {
		t.Fatalf("unexpected base url: %s", listing.BaseURL)
	}
}

func TestScanStructuredEndpoint(t *testing.T) {
	t.Parallel()

	server := newServer(t, map[string]func(http.ResponseWriter){
		"/api/search": body(searchJSON),
		"/careers":    func(http.ResponseWriter) { t.Error("html listing must not be fetched") },
	})
	src := domain.NewSource("acme", server.URL+"/careers")
	src.SearchURL = server.URL + "/api/search"

	listing, err := fetchListing(t, src)
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	if listing.Mode != domain.ListingStructured {
		t.Fatalf("expected structured mode, got %s", listing.Mode)
	}

	got := collect(listing)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	first := got[0]
	if first.Title != "Software Development Engineer" || first.URL != "/en/jobs/2890123/sde" {
		t.Fatalf("unexpected first candidate: %+v", first)
	}
	if first.InlineDateHint != "October 31, 2025" || first.HintSource != domain.DateSourceStructured || first.Location != "Seattle, WA" {
		t.Fatalf("unexpected first candidate metadata: %+v", first)
	}
	second := got[1]
	if second.Title != "Applied Scientist" || second.InlineDateHint != "1749513600000" || second.Location != "Austin" {
		t.Fatalf("unexpected second candidate: %+v", second)
	}
	if listing.Malformed() != 2 {
		t.Fatalf("expected 2 malformed entries, got %d", listing.Malformed())
	}
}

func TestScanFallsBackToHTML(t *testing.T) {
	t.Parallel()

	cases := map[string]func(http.ResponseWriter){
		"server error":     func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) },
		"empty lists":      body(`{"jobs": [], "results": []}`),
		"not json":         body(`<html>blocked</html>`),
		"malformed items":  body(`{"jobs": [{"title": "", "job_path": "/jobs/1"}, {"title": "Engineer"}, "x"]}`),
		"off-domain items": body(`{"jobs": [{"title": "Software Engineer", "absolute_url": "https://evil.com/jobs/12"}]}`),
	}

	for name, endpoint := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			server := newServer(t, map[string]func(http.ResponseWriter){
				"/api/search": endpoint,
				"/careers":    body(listingHTML),
			})
			src := domain.NewSource("acme", server.URL+"/careers")
			src.SearchURL = server.URL + "/api/search"

			listing, err := fetchListing(t, src)
			if err != nil {
				t.Fatalf("fetch listing: %v", err)
			}
			if listing.Mode != domain.ListingHTML {
				t.Fatalf("expected html fallback, got %s", listing.Mode)
			}
			if n := len(collect(listing)); n != 3 {
				t.Fatalf("expected 3 candidates, got %d", n)
			}
		})
	}
}

func TestScanStructuredTopLevelList(t *testing.T) {
	t.Parallel()

	server := newServer(t, map[string]func(http.ResponseWriter){
		"/api/openings": body(`{"meta": ["page 1"], "openings": [{"title": "Software Engineer", "url": "/jobs/77"}], "total": 1}`),
		"/careers":      func(http.ResponseWriter) { t.Error("html listing must not be fetched") },
	})
	src := domain.NewSource("acme", server.URL+"/careers")
	src.SearchURL = server.URL + "/api/openings"

	listing, err := fetchListing(t, src)
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	if listing.Mode != domain.ListingStructured {
		t.Fatalf("expected structured mode, got %s", listing.Mode)
	}
	got := collect(listing)
	if len(got) != 1 || got[0].URL != "/jobs/77" || got[0].Title != "Software Engineer" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if listing.FetchedAt.IsZero() {
		t.Fatalf("expected listing fetch time")
	}
}

func TestStructuredItems(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		payload any
		want    int
	}{
		"well-known key": {payload: map[string]any{"results": []any{map[string]any{}, map[string]any{}}}, want: 2},
		"array payload":  {payload: []any{map[string]any{}}, want: 1},
		"object list":    {payload: map[string]any{"a": []any{"x"}, "b": []any{map[string]any{}}}, want: 1},
		"no lists":       {payload: map[string]any{"count": 3.0}, want: 0},
	}

	for name, tc := range cases {
		items, err := structuredItems(tc.payload)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(items) != tc.want {
			t.Fatalf("%s: expected %d items, got %d", name, tc.want, len(items))
		}
	}
}

func TestScanAmazonDerivesEndpoint(t *testing.T) {
	t.Parallel()

	server := newServer(t, map[string]func(http.ResponseWriter){"/en/search.json": body(searchJSON)})
	src := domain.NewSource("amazon", server.URL+"/en/search")
	src.Strategy = "amazon"

	listing, err := fetchListing(t, src)
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	if listing.Mode != domain.ListingStructured {
		t.Fatalf("expected structured mode, got %s", listing.Mode)
	}
}

func TestScanUnreachableListing(t *testing.T) {
	t.Parallel()

	server := newServer(t, map[string]func(http.ResponseWriter){})
	src := domain.NewSource("acme", server.URL+"/careers")

	_, err := fetchListing(t, src)
	if !errors.Is(err, domain.ErrSourceUnreachable) {
		t.Fatalf("expected ErrSourceUnreachable, got %v", err)
	}
	if !errors.Is(err, httpclient.ErrUnexpectedStatus) {
		t.Fatalf("expected status error in chain, got %v", err)
	}
}

func TestListingIsLazy(t *testing.T) {
	t.Parallel()

	server := newServer(t, map[string]func(http.ResponseWriter){"/careers": body(listingHTML)})
	listing, err := fetchListing(t, domain.NewSource("acme", server.URL+"/careers"))
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}

	for c := range listing.All() {
		if !strings.Contains(c.URL, "/jobs/101") {
			t.Fatalf("unexpected first candidate: %+v", c)
		}
		break
	}
	if listing.Malformed() != 0 {
		t.Fatalf("entries after the break must not be visited, malformed=%d", listing.Malformed())
	}
	if n := len(collect(listing)); n != 0 {
		t.Fatalf("listing must not restart, got %d candidates", n)
	}
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(NewAmazonScanner(nil))
	source := NewStrategySource(reg, nil)

	src := domain.NewSource("amazon", "https://www.amazon.jobs/en/search")
	src.Strategy = "amazon"
	prepared, err := source.Prepare(src)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if prepared.JobPathPattern == "" {
		t.Fatalf("expected amazon job path default")
	}

	src.Strategy = "unknown"
	if _, err := source.Prepare(src); !errors.Is(err, domain.ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
}

func TestAmazonSearchURL(t *testing.T) {
	t.Parallel()

	got := amazonSearchURL("https://WWW.Amazon.jobs/en/teams/aws")
	want := "https://www.amazon.jobs/en/search.json?offset=0&result_limit=100&sort=recent"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
