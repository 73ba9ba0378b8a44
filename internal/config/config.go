package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"JobWatch/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "JOBWATCH_CONFIG"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidChannel  = errors.New("invalid delivery channel")
	ErrInvalidFetch    = errors.New("invalid fetch settings")
	ErrInvalidHTTP     = errors.New("invalid http settings")
	ErrInvalidSeed     = errors.New("invalid source seed")
)

// Delivery channels.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	HTTP      HTTPConfig      `yaml:"http"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Sources   []SourceConfig  `yaml:"sources"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

// RedisConfig enables run locks and run events when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	Channel  string        `yaml:"channel" env:"REDIS_CHANNEL"`
	LockTTL  time.Duration `yaml:"lockTtl" env:"REDIS_LOCK_TTL"`
}

type HTTPConfig struct {
	Addr       string        `yaml:"addr" env:"HTTP_ADDR"`
	RunTimeout time.Duration `yaml:"runTimeout" env:"HTTP_RUN_TIMEOUT"`
}

// FetchConfig tunes the page transport and the run budget.
type FetchConfig struct {
	UserAgent      string        `yaml:"userAgent" env:"FETCH_USER_AGENT"`
	AcceptLanguage string        `yaml:"acceptLanguage" env:"FETCH_ACCEPT_LANGUAGE"`
	ListingTimeout time.Duration `yaml:"listingTimeout" env:"FETCH_LISTING_TIMEOUT"`
	DetailTimeout  time.Duration `yaml:"detailTimeout" env:"FETCH_DETAIL_TIMEOUT"`
	MaxBodyKB      int           `yaml:"maxBodyKb" env:"FETCH_MAX_BODY_KB"`
	MaxCandidates  int           `yaml:"maxCandidates" env:"FETCH_MAX_CANDIDATES"`
	MaxParallel    int           `yaml:"maxParallel" env:"FETCH_MAX_PARALLEL"`
	WarmUp         bool          `yaml:"warmUp" env:"FETCH_WARM_UP"`
	Retry          RetryConfig   `yaml:"retry" envPrefix:"FETCH_RETRY_"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"maxAttempts" env:"MAX_ATTEMPTS"`
	InitialDelay      time.Duration `yaml:"initialDelay" env:"INITIAL_DELAY"`
	MaxDelay          time.Duration `yaml:"maxDelay" env:"MAX_DELAY"`
	BackoffMultiplier float64       `yaml:"backoffMultiplier" env:"BACKOFF_MULTIPLIER"`
}

// SchedulerConfig defines when every active source runs. An empty expression disables it.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression" env:"SCHEDULER_CRON"`
	Timezone       string         `yaml:"timezone" env:"JOBWATCH_TIMEZONE"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the timezone string used for "today" and cron triggers.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

type DeliveryConfig struct {
	Channel          string         `yaml:"channel" env:"DELIVERY_CHANNEL"`
	DefaultRecipient string         `yaml:"defaultRecipient" env:"RECIPIENT_EMAIL"`
	SMTP             SMTPConfig     `yaml:"smtp"`
	Telegram         TelegramConfig `yaml:"telegram"`
}

// SMTPConfig mirrors the usual SMTP_* variables; port 465 means implicit TLS.
type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT"`
	Username string `yaml:"username" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASS"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

type TelegramConfig struct {
	BotToken string `yaml:"botToken" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chatId" env:"TELEGRAM_CHAT_ID"`
	APIBase  string `yaml:"apiBase" env:"TELEGRAM_API_BASE"`
}

// SourceConfig seeds the source store.
type SourceConfig struct {
	Name              string   `yaml:"name"`
	ListURL           string   `yaml:"listUrl"`
	SearchURL         string   `yaml:"searchUrl"`
	Strategy          string   `yaml:"strategy"`
	RoleKeywords      []string `yaml:"roleKeywords"`
	MaxAgeDays        *int     `yaml:"maxAgeDays"`
	DetailFetchLimit  *int     `yaml:"detailFetchLimit"`
	JobPathPattern    string   `yaml:"jobPathPattern"`
	AllowedHosts      []string `yaml:"allowedHosts"`
	KeepQueryParams   []string `yaml:"keepQueryParams"`
	IncludeUnknownAge bool     `yaml:"includeUnknownAge"`
	TrustListingDates bool     `yaml:"trustListingDates"`
	DayFirst          bool     `yaml:"dayFirst"`
	Recipient         string   `yaml:"recipient"`
	Active            *bool    `yaml:"active"`
}

// Source converts the seed entry, keeping domain defaults for omitted limits.
func (s SourceConfig) Source() domain.Source {
	src := domain.NewSource(s.Name, s.ListURL)
	src.SearchURL = s.SearchURL
	if s.Strategy != "" {
		src.Strategy = s.Strategy
	}
	src.RoleKeywords = s.RoleKeywords
	if s.MaxAgeDays != nil {
		src.MaxAgeDays = *s.MaxAgeDays
	}
	if s.DetailFetchLimit != nil {
		src.DetailFetchLimit = *s.DetailFetchLimit
	}
	src.JobPathPattern = s.JobPathPattern
	src.AllowedHosts = s.AllowedHosts
	src.KeepQueryParams = s.KeepQueryParams
	src.IncludeUnknownAge = s.IncludeUnknownAge
	src.TrustListingDates = s.TrustListingDates
	src.DayFirst = s.DayFirst
	src.Recipient = s.Recipient
	if s.Active != nil {
		src.Active = *s.Active
	}
	return src
}

// SeedSources returns the configured sources as domain values.
func (c Config) SeedSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, s.Source())
	}
	return out
}

// Load reads defaults, the YAML file named by JOBWATCH_CONFIG, a .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load without the .env step; an empty path skips the YAML file.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and binds the timezone.
func (c *Config) Validate() error {
	tz := strings.TrimSpace(c.Scheduler.Timezone)
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTimezone, tz, err)
	}
	c.Scheduler.location = loc

	switch c.Delivery.Channel {
	case ChannelEmail, ChannelTelegram:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidChannel, c.Delivery.Channel)
	}

	if c.HTTP.Addr == "" || c.HTTP.RunTimeout <= 0 {
		return fmt.Errorf("%w: addr and runTimeout are required", ErrInvalidHTTP)
	}

	f := c.Fetch
	if f.ListingTimeout <= 0 || f.DetailTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidFetch)
	}
	if f.MaxCandidates <= 0 || f.MaxParallel <= 0 || f.MaxBodyKB <= 0 {
		return fmt.Errorf("%w: maxCandidates, maxParallel and maxBodyKb must be positive", ErrInvalidFetch)
	}
	if f.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.maxAttempts must be >= 1", ErrInvalidFetch)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if err := s.Source().Validate(); err != nil {
			return fmt.Errorf("%w: sources[%d]: %w", ErrInvalidSeed, i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidSeed, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// DefaultRecipient is the destination used when neither the request nor the source names one.
func (c Config) DefaultRecipient() string {
	if c.Delivery.Channel == ChannelTelegram && c.Delivery.Telegram.ChatID != "" {
		return c.Delivery.Telegram.ChatID
	}
	return c.Delivery.DefaultRecipient
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Redis:   RedisConfig{Channel: "jobwatch:runs", LockTTL: 10 * time.Minute},
		HTTP:    HTTPConfig{Addr: ":8080", RunTimeout: 5 * time.Minute},
		Fetch: FetchConfig{
			AcceptLanguage: "en-US,en;q=0.9",
			ListingTimeout: 30 * time.Second,
			DetailTimeout:  20 * time.Second,
			MaxBodyKB:      4096,
			MaxCandidates:  250,
			MaxParallel:    4,
			WarmUp:         true,
			Retry: RetryConfig{
				MaxAttempts:       3,
				InitialDelay:      500 * time.Millisecond,
				MaxDelay:          5 * time.Second,
				BackoffMultiplier: 2,
			},
		},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone},
		Delivery: DeliveryConfig{
			Channel: ChannelEmail,
			SMTP:    SMTPConfig{Host: "smtp.gmail.com", Port: 587},
		},
	}
}
