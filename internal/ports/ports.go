package ports

import (
	"context"
	"time"

	"JobWatch/internal/domain"
)

// SourceStore keeps the per-company source configuration.
type SourceStore interface {
	List(ctx context.Context) ([]domain.Source, error)
	Get(ctx context.Context, id int64) (domain.Source, error)
	GetByName(ctx context.Context, name string) (domain.Source, error)
	Create(ctx context.Context, src domain.Source) (domain.Source, error)
	Delete(ctx context.Context, id int64) error
	Reset(ctx context.Context) error
}

// PageFetcher downloads a single page. Non-2xx responses are errors.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Page, error)
}

// Transport opens a fetch session scoped to one run.
type Transport interface {
	NewSession(src domain.Source) PageFetcher
}

// ListingSource discovers candidate postings for a source.
// Prepare validates the source's strategy and fills in strategy defaults.
type ListingSource interface {
	Prepare(src domain.Source) (domain.Source, error)
	FetchListing(ctx context.Context, fetcher PageFetcher, src domain.Source) (*domain.Listing, error)
}

// Deliverer hands a finished report to a recipient (email address, chat id).
type Deliverer interface {
	Deliver(ctx context.Context, report *domain.RunReport, destination string) error
}

// ReportPublisher announces completed runs to interested listeners.
type ReportPublisher interface {
	Publish(ctx context.Context, report *domain.RunReport) error
}

// RunLocker prevents overlapping runs of the same source.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Scheduler controls when periodic runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
