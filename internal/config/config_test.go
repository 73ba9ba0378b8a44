package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.Fetch.ListingTimeout)
	assert.Equal(t, 250, cfg.Fetch.MaxCandidates)
	assert.Equal(t, ChannelEmail, cfg.Delivery.Channel)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location())
	assert.Empty(t, cfg.Sources)
}

func TestLoadFileYAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
fetch:
  detailTimeout: 5s
  maxParallel: 2
  retry:
    maxAttempts: 5
scheduler:
  cronExpression: "0 6 * * *"
  timezone: Europe/Berlin
delivery:
  defaultRecipient: file@example.com
sources:
  - name: Amazon
    listUrl: https://www.amazon.jobs/en/search
    strategy: amazon
    roleKeywords: [software, engineer]
    maxAgeDays: 3
  - name: Acme
    listUrl: https://acme.example/careers
    active: false
`)
	t.Setenv("RECIPIENT_EMAIL", "env@example.com")
	t.Setenv("SMTP_PASS", "abcd efgh")
	t.Setenv("FETCH_RETRY_MAX_ATTEMPTS", "2")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5*time.Second, cfg.Fetch.DetailTimeout)
	assert.Equal(t, 30*time.Second, cfg.Fetch.ListingTimeout, "untouched keys keep defaults")
	assert.Equal(t, 2, cfg.Fetch.MaxParallel)
	assert.Equal(t, 2, cfg.Fetch.Retry.MaxAttempts, "env wins over file")
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, "env@example.com", cfg.DefaultRecipient())
	assert.Equal(t, "abcd efgh", cfg.Delivery.SMTP.Password)

	seed := cfg.SeedSources()
	require.Len(t, seed, 2)
	assert.Equal(t, "amazon", seed[0].Strategy)
	assert.Equal(t, 3, seed[0].MaxAgeDays)
	assert.Equal(t, 40, seed[0].DetailFetchLimit)
	assert.True(t, seed[0].Active)
	assert.Equal(t, "generic", seed[1].Strategy)
	assert.False(t, seed[1].Active)
}

func TestLoadFileZeroMaxAgeIsKept(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: Acme
    listUrl: https://acme.example/careers
    maxAgeDays: 0
    detailFetchLimit: 0
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	src := cfg.SeedSources()[0]
	assert.Zero(t, src.MaxAgeDays)
	assert.Zero(t, src.DetailFetchLimit)
}

func TestTelegramDefaultRecipient(t *testing.T) {
	path := writeConfig(t, `
delivery:
  channel: telegram
  defaultRecipient: someone@example.com
  telegram:
    chatId: "-100200"
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "-100200", cfg.DefaultRecipient())
}

func TestLoadFileValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"timezone", "scheduler:\n  timezone: Mars/Olympus\n", ErrInvalidTimezone},
		{"channel", "delivery:\n  channel: pigeon\n", ErrInvalidChannel},
		{"fetch", "fetch:\n  maxParallel: -1\n", ErrInvalidFetch},
		{"retry", "fetch:\n  retry:\n    maxAttempts: 0\n", ErrInvalidFetch},
		{"http", "http:\n  addr: \"\"\n", ErrInvalidHTTP},
		{"seed url", "sources:\n  - name: Acme\n    listUrl: ftp://acme.example\n", ErrInvalidSeed},
		{"seed dup", "sources:\n  - name: Acme\n    listUrl: https://a.example\n  - name: Acme\n    listUrl: https://b.example\n", ErrInvalidSeed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tc.body))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
