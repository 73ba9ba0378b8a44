package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"JobWatch/internal/domain"
	"JobWatch/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	maxMessageLen  = 4096
)

var ErrNotConfigured = errors.New("telegram notifier misconfigured")

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	apiBase  string
	client   *http.Client
}

var _ ports.Deliverer = (*Notifier)(nil)

// NewNotifier registers the bot token; apiBase may be empty for the public API.
func NewNotifier(botToken, apiBase string) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		botToken: botToken,
		apiBase:  strings.TrimRight(apiBase, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Deliver posts the digest to the chat id in destination, split into messages Telegram accepts.
func (n *Notifier) Deliver(ctx context.Context, report *domain.RunReport, destination string) error {
	if n.botToken == "" || destination == "" || n.client == nil {
		return ErrNotConfigured
	}
	for i, chunk := range splitMessage(FormatDigest(report), maxMessageLen) {
		if err := n.send(ctx, destination, chunk); err != nil {
			return fmt.Errorf("message %d: %w", i+1, err)
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, chatID, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatDigest renders the report with the HTML subset Telegram supports.
func FormatDigest(r *domain.RunReport) string {
	var b strings.Builder
	if len(r.Jobs) == 0 {
		fmt.Fprintf(&b, "<b>No recent matches (≤ %d days) for %s</b>", r.MaxAgeDays, html.EscapeString(r.Source))
		return b.String()
	}

	fmt.Fprintf(&b, "<b>%s careers (last %d days)</b>\n", html.EscapeString(r.Source), r.MaxAgeDays)
	for _, job := range r.Jobs {
		fmt.Fprintf(&b, "\n• <a href=\"%s\">%s</a>", html.EscapeString(job.CanonicalURL), html.EscapeString(job.Title))
		if job.Location != "" {
			fmt.Fprintf(&b, " · %s", html.EscapeString(job.Location))
		}
		if day := job.PostedDay(); day != "" {
			fmt.Fprintf(&b, " · %s", day)
		}
	}
	fmt.Fprintf(&b, "\n\nTotal (fresh): %d", len(r.Jobs))
	return b.String()
}

// splitMessage cuts text on line boundaries so no chunk exceeds limit runes.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		size   int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			size = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if size+n > limit {
			flush()
		}
		for n > limit {
			head := string([]rune(line)[:limit])
			chunks = append(chunks, head)
			line = line[len(head):]
			n -= limit
		}
		cur.WriteString(line)
		size += n
	}
	flush()
	return chunks
}
