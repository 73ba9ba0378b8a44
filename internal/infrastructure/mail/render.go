package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/mattn/go-runewidth"

	"JobWatch/internal/domain"
)

const (
	titleWidth    = 48
	locationWidth = 24
)

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{"posted": postedLabel}).Parse(`
{{- if .Jobs -}}
<h2>{{.Source}} careers (last {{.MaxAgeDays}} days)</h2>
<p>Filter: {{.Filter}}</p>
<table border="1" cellpadding="6" cellspacing="0">
  <tr><th>Title</th><th>Location</th><th>Posted / Updated</th></tr>
{{- range .Jobs}}
  <tr><td><a href="{{.CanonicalURL}}">{{.Title}}</a></td><td>{{.Location}}</td><td>{{posted .}}</td></tr>
{{- end}}
</table>
<p>Total (fresh): {{len .Jobs}}</p>
{{- else -}}
<h2>No recent matches (&le; {{.MaxAgeDays}} days) for {{.Source}}</h2>
{{- end}}
`))

type digestView struct {
	Source     string
	MaxAgeDays int
	Filter     string
	Jobs       []domain.NormalizedJob
}

// Subject is the digest email subject line.
func Subject(r *domain.RunReport) string {
	return fmt.Sprintf("[JobWatch] %s roles (≤%dd)", r.Source, r.MaxAgeDays)
}

// RenderHTML renders the digest table.
func RenderHTML(r *domain.RunReport) (string, error) {
	var buf bytes.Buffer
	view := digestView{
		Source:     r.Source,
		MaxAgeDays: r.MaxAgeDays,
		Filter:     filterLabel(r.Keywords),
		Jobs:       r.Jobs,
	}
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render html digest: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders the plain-text alternative with columns aligned by display width.
func RenderText(r *domain.RunReport) string {
	var b strings.Builder
	if len(r.Jobs) == 0 {
		fmt.Fprintf(&b, "No recent matches (<= %d days) for %s\n", r.MaxAgeDays, r.Source)
		return b.String()
	}

	fmt.Fprintf(&b, "%s careers (last %d days)\n", r.Source, r.MaxAgeDays)
	fmt.Fprintf(&b, "Filter: %s\n\n", filterLabel(r.Keywords))
	b.WriteString(row("Title", "Location", "Posted / Updated"))
	b.WriteString(strings.Repeat("-", titleWidth+locationWidth+2+len("Posted / Updated")))
	b.WriteString("\n")
	for _, job := range r.Jobs {
		b.WriteString(row(job.Title, job.Location, postedLabel(job)))
		fmt.Fprintf(&b, "  %s\n", job.CanonicalURL)
	}
	fmt.Fprintf(&b, "\nTotal (fresh): %d\n", len(r.Jobs))
	return b.String()
}

func row(title, location, posted string) string {
	title = runewidth.FillRight(runewidth.Truncate(title, titleWidth, "…"), titleWidth)
	location = runewidth.FillRight(runewidth.Truncate(location, locationWidth, "…"), locationWidth)
	return title + " " + location + " " + posted + "\n"
}

func postedLabel(job domain.NormalizedJob) string {
	if day := job.PostedDay(); day != "" {
		return day
	}
	if job.DateText != "" {
		return job.DateText
	}
	return "unknown"
}

func filterLabel(keywords []string) string {
	if len(keywords) == 0 {
		return "(none)"
	}
	return strings.Join(keywords, ", ")
}
