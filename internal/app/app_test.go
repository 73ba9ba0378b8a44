package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JobWatch/internal/config"
	"JobWatch/internal/logging"
	"JobWatch/internal/usecase"
)

func careersSite(t *testing.T) *httptest.Server {
	t.Helper()
	today := time.Now().UTC().Format("2006-01-02")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/careers":
			_, _ = io.WriteString(w, `<ul><li><a href="/jobs/1">Backend Engineer</a></li><li><a href="/jobs/2">Chef</a></li></ul>`)
		case "/jobs/1", "/jobs/2":
			_, _ = io.WriteString(w, `<script type="application/ld+json">{"@type":"JobPosting","datePosted":"`+today+`"}</script>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, listURL string) config.Config {
	t.Helper()
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	cfg.Fetch.WarmUp = false
	cfg.Sources = []config.SourceConfig{{Name: "Acme", ListURL: listURL, RoleKeywords: []string{"engineer"}}}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunOnceDryRun(t *testing.T) {
	srv := careersSite(t)
	ctx := context.Background()

	a, err := New(ctx, testConfig(t, srv.URL+"/careers"), logging.NewWithWriter(io.Discard, "error", "text"))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	reports, err := a.RunOnce(ctx, "Acme", usecase.RunOptions{DryRun: true})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Jobs, 1)
	assert.Equal(t, "Backend Engineer", reports[0].Jobs[0].Title)

	all, err := a.RunOnce(ctx, "", usecase.RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHandlerServesSeededCompanies(t *testing.T) {
	srv := careersSite(t)
	a, err := New(context.Background(), testConfig(t, srv.URL+"/careers"), logging.NewWithWriter(io.Discard, "error", "text"))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/companies", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Acme"`)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview/1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.Contains(rec.Body.String(), `"count":1`))
}

func TestNewRejectsBadCron(t *testing.T) {
	cfg := testConfig(t, "https://acme.example/careers")
	cfg.Scheduler.CronExpression = "whenever"
	_, err := New(context.Background(), cfg, logging.NewWithWriter(io.Discard, "error", "text"))
	require.Error(t, err)
}

func TestNewLogsStrategiesAndNextTrigger(t *testing.T) {
	srv := careersSite(t)
	cfg := testConfig(t, srv.URL+"/careers")
	cfg.Scheduler.CronExpression = "0 9 * * 1-5"

	var buf bytes.Buffer
	a, err := New(context.Background(), cfg, logging.NewWithWriter(&buf, "debug", "text"))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	out := buf.String()
	assert.Contains(t, out, "listing strategies registered")
	assert.Contains(t, out, "amazon generic html")
	assert.Contains(t, out, "cron trigger configured")
	assert.Contains(t, out, `expr="0 9 * * 1-5"`)
}
