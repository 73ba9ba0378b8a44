package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"JobWatch/internal/domain"
	"JobWatch/internal/ports"
)

const (
	DefaultLockPrefix = "jobwatch:lock:"
	DefaultChannel    = "jobwatch:runs"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient opens a client and pings it.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Locker implements ports.RunLocker with SET NX and a token-checked release.
type Locker struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.RunLocker = (*Locker)(nil)

func NewLocker(client redis.UniversalClient, prefix string) *Locker {
	if prefix == "" {
		prefix = DefaultLockPrefix
	}
	return &Locker{client: client, prefix: prefix}
}

// TryLock takes the lock for key or fails with domain.ErrRunInProgress.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if key == "" {
		return nil, errors.New("lock key cannot be empty")
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	fullKey := l.prefix + key
	token := uuid.NewString()

	status, err := l.client.SetArgs(ctx, fullKey, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis SET NX: %w", err)
	}
	if status != "OK" {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, key)
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}

// Summary is the message published after every run.
type Summary struct {
	RunID      string           `json:"run_id"`
	SourceID   int64            `json:"source_id"`
	Source     string           `json:"source"`
	DryRun     bool             `json:"dry_run"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Counts     domain.RunCounts `json:"counts"`
	Jobs       int              `json:"jobs"`
	Delivered  bool             `json:"delivered"`
}

// SummaryOf strips the job list from a report.
func SummaryOf(r *domain.RunReport) Summary {
	return Summary{
		RunID:      r.RunID,
		SourceID:   r.SourceID,
		Source:     r.Source,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Counts:     r.Counts,
		Jobs:       len(r.Jobs),
		Delivered:  r.Delivered,
	}
}

// Publisher implements ports.ReportPublisher over Redis pub/sub.
type Publisher struct {
	client  redis.UniversalClient
	channel string
}

var _ ports.ReportPublisher = (*Publisher)(nil)

func NewPublisher(client redis.UniversalClient, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, report *domain.RunReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}
	data, err := json.Marshal(SummaryOf(report))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
