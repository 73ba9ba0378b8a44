package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"JobWatch/internal/dateextract"
	"JobWatch/internal/domain"
	"JobWatch/internal/filter"
	"JobWatch/internal/linknorm"
	"JobWatch/internal/ports"
)

// Run states, logged as the pipeline advances.
const (
	stateFetching  = "fetching"
	stateEnriching = "enriching"
	stateFiltering = "filtering"
	stateDone      = "done"
)

const (
	defaultListingTimeout = 30 * time.Second
	defaultDetailTimeout  = 20 * time.Second
	defaultMaxCandidates  = 250
	defaultLockTTL        = 10 * time.Minute
)

// RunOptions are the per-invocation switches.
type RunOptions struct {
	DryRun    bool
	Recipient string
}

// PipelineDeps wires all driven adapters into the run orchestrator.
type PipelineDeps struct {
	Listings  ports.ListingSource
	Transport ports.Transport
	Deliverer ports.Deliverer
	Publisher ports.ReportPublisher
	Locker    ports.RunLocker
	Logger    *slog.Logger

	Location         *time.Location
	ListingTimeout   time.Duration
	DetailTimeout    time.Duration
	MaxCandidates    int
	MaxParallel      int
	LockTTL          time.Duration
	DefaultRecipient string

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Pipeline runs one source through fetching, enrichment, filtering and delivery.
type Pipeline struct {
	listings  ports.ListingSource
	transport ports.Transport
	deliverer ports.Deliverer
	publisher ports.ReportPublisher
	locker    ports.RunLocker
	logger    *slog.Logger

	loc              *time.Location
	listingTimeout   time.Duration
	detailTimeout    time.Duration
	maxCandidates    int
	maxParallel      int
	lockTTL          time.Duration
	defaultRecipient string
	now              func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		listings:         deps.Listings,
		transport:        deps.Transport,
		deliverer:        deps.Deliverer,
		publisher:        deps.Publisher,
		locker:           deps.Locker,
		logger:           deps.Logger,
		loc:              deps.Location,
		listingTimeout:   deps.ListingTimeout,
		detailTimeout:    deps.DetailTimeout,
		maxCandidates:    deps.MaxCandidates,
		maxParallel:      deps.MaxParallel,
		lockTTL:          deps.LockTTL,
		defaultRecipient: deps.DefaultRecipient,
		now:              deps.Now,
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.listingTimeout <= 0 {
		p.listingTimeout = defaultListingTimeout
	}
	if p.detailTimeout <= 0 {
		p.detailTimeout = defaultDetailTimeout
	}
	if p.maxCandidates <= 0 {
		p.maxCandidates = defaultMaxCandidates
	}
	if p.lockTTL <= 0 {
		p.lockTTL = defaultLockTTL
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run executes one run. A SourceUnreachable failure returns no report; a delivery
// failure returns the report together with an error wrapping ErrDeliveryFailed.
func (p *Pipeline) Run(ctx context.Context, src domain.Source, opts RunOptions) (*domain.RunReport, error) {
	if p.listings == nil || p.transport == nil {
		return nil, fmt.Errorf("pipeline is not configured")
	}

	src, err := p.listings.Prepare(src)
	if err != nil {
		return nil, err
	}
	rules, err := linknorm.RulesFor(src)
	if err != nil {
		return nil, err
	}

	if p.locker != nil {
		release, err := p.locker.TryLock(ctx, src.Name, p.lockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				p.warn("release run lock", "source", src.Name, "error", err)
			}
		}()
	}

	started := p.now()
	report := &domain.RunReport{
		RunID:      uuid.NewString(),
		SourceID:   src.ID,
		Source:     src.Name,
		DryRun:     opts.DryRun,
		StartedAt:  started,
		Keywords:   src.Keywords(),
		MaxAgeDays: src.MaxAgeDays,
	}
	log := p.runLogger(report)

	log.Info("run state", "state", stateFetching, "url", src.ListURL)
	session := p.transport.NewSession(src)
	jobs, hints, listedAt, err := p.discover(ctx, session, src, rules, report)
	if err != nil {
		log.Warn("source unreachable", "error", err)
		return nil, err
	}

	log.Info("run state", "state", stateEnriching, "candidates", len(jobs), "limit", src.DetailFetchLimit)
	extractor := dateextract.New(dateextract.Options{Location: p.loc, DayFirst: src.DayFirst})
	p.enrich(ctx, session, extractor, src, jobs, hints, listedAt, report)

	log.Info("run state", "state", stateFiltering)
	result := filter.Apply(jobs, filter.Criteria{
		Keywords:          src.Keywords(),
		MaxAgeDays:        src.MaxAgeDays,
		IncludeUnknownAge: src.IncludeUnknownAge,
		Today:             domain.DateOf(started.In(p.loc)),
	})
	report.Jobs = result.Jobs
	report.Counts.Duplicates = result.Duplicates
	report.Counts.KeywordMisses = result.KeywordMisses
	report.Counts.TooOld = result.TooOld
	report.Counts.UnknownAge = result.UnknownAge
	report.Counts.FilteredOut = result.FilteredOut()
	report.Counts.FilteredIn = len(result.Jobs)
	report.FinishedAt = p.now()

	log.Info("run state", "state", stateDone,
		"discovered", report.Counts.Discovered,
		"noise", report.Counts.RejectedAsNoise,
		"enriched", report.Counts.Enriched,
		"detail_failures", report.Counts.DetailFailures,
		"kept", report.Counts.FilteredIn,
	)

	var deliveryErr error
	if !opts.DryRun {
		deliveryErr = p.deliver(ctx, src, opts, report)
		if deliveryErr != nil {
			log.Error("delivery failed", "error", deliveryErr)
		}
	}

	p.publish(ctx, report)
	return report, deliveryErr
}

// discover reads the listing and normalizes every candidate, dropping noise. It also
// returns when the listing was fetched.
func (p *Pipeline) discover(ctx context.Context, fetcher ports.PageFetcher, src domain.Source, rules linknorm.Rules, report *domain.RunReport) ([]domain.NormalizedJob, []domain.CandidatePosting, time.Time, error) {
	listCtx, cancel := context.WithTimeout(ctx, p.listingTimeout)
	defer cancel()

	listing, err := p.listings.FetchListing(listCtx, fetcher, src)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnreachable) {
			err = fmt.Errorf("%w: %s: %w", domain.ErrSourceUnreachable, src.Name, err)
		}
		return nil, nil, time.Time{}, err
	}
	report.ListingMode = listing.Mode
	listedAt := listing.FetchedAt
	if listedAt.IsZero() {
		listedAt = report.StartedAt
	}

	var (
		jobs       []domain.NormalizedJob
		candidates []domain.CandidatePosting
	)
	for candidate := range listing.All() {
		if report.Counts.Discovered >= p.maxCandidates {
			break
		}
		report.Counts.Discovered++

		canonical, err := rules.Normalize(candidate.URL, listing.BaseURL)
		if err != nil {
			report.Counts.RejectedAsNoise++
			continue
		}
		jobs = append(jobs, domain.NormalizedJob{
			CanonicalURL: canonical,
			Title:        candidate.Title,
			Location:     candidate.Location,
			DateSource:   domain.DateSourceNone,
		})
		candidates = append(candidates, candidate)
	}
	report.Counts.Malformed = listing.Malformed()
	return jobs, candidates, listedAt, nil
}

type detailOutcome struct {
	result domain.DateResult
	failed bool
}

// enrich fetches up to DetailFetchLimit distinct detail pages concurrently and merges the
// results back in candidate order. Listing hints are only consulted for sources that trust
// them; a failed fetch or an undated detail page leaves the date unknown, as do candidates
// outside the budget.
func (p *Pipeline) enrich(ctx context.Context, fetcher ports.PageFetcher, extractor *dateextract.Extractor, src domain.Source, jobs []domain.NormalizedJob, candidates []domain.CandidatePosting, listedAt time.Time, report *domain.RunReport) {
	targets := make([]int, 0, min(src.DetailFetchLimit, len(jobs)))
	selected := map[string]struct{}{}
	for i := range jobs {
		if src.TrustListingDates {
			if res := extractor.ResolveHint(candidates[i].InlineDateHint, candidates[i].HintSource, listedAt); res.Found() {
				applyDate(&jobs[i], res)
				continue
			}
		}
		if len(targets) >= src.DetailFetchLimit {
			continue
		}
		if _, dup := selected[jobs[i].CanonicalURL]; dup {
			continue
		}
		selected[jobs[i].CanonicalURL] = struct{}{}
		targets = append(targets, i)
	}

	outcomes := make([]detailOutcome, len(targets))
	if len(targets) > 0 {
		limit := len(targets)
		if p.maxParallel > 0 && p.maxParallel < limit {
			limit = p.maxParallel
		}

		var g errgroup.Group
		g.SetLimit(limit)
		for slot, idx := range targets {
			g.Go(func() error {
				outcomes[slot] = p.fetchDetail(ctx, fetcher, extractor, jobs[idx].CanonicalURL)
				return nil
			})
		}
		_ = g.Wait()
	}

	report.Counts.EnrichAttempted = len(targets)
	for slot, idx := range targets {
		out := outcomes[slot]
		if out.failed {
			report.Counts.DetailFailures++
		} else {
			report.Counts.Enriched++
		}
		applyDate(&jobs[idx], out.result)
	}

	for _, job := range jobs {
		if job.PostedDate != nil {
			report.Counts.DatesFound++
		}
	}
}

func (p *Pipeline) fetchDetail(ctx context.Context, fetcher ports.PageFetcher, extractor *dateextract.Extractor, url string) detailOutcome {
	detailCtx, cancel := context.WithTimeout(ctx, p.detailTimeout)
	defer cancel()

	page, err := fetcher.Fetch(detailCtx, url)
	if err != nil {
		p.debug("detail fetch failed", "url", url, "error", fmt.Errorf("%w: %w", domain.ErrDetailFetchFailed, err))
		return detailOutcome{result: domain.NoDate(), failed: true}
	}
	return detailOutcome{result: extractor.Extract(page.Body, page.FetchedAt)}
}

func applyDate(job *domain.NormalizedJob, res domain.DateResult) {
	if !res.Found() {
		return
	}
	job.PostedDate = res.Date
	job.DateSource = res.Source
	job.DateText = res.Raw
}

func (p *Pipeline) deliver(ctx context.Context, src domain.Source, opts RunOptions, report *domain.RunReport) error {
	destination := firstNonEmpty(opts.Recipient, src.Recipient, p.defaultRecipient)
	if destination == "" {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, domain.ErrNoRecipient)
	}
	if p.deliverer == nil {
		return fmt.Errorf("%w: no delivery channel configured", domain.ErrDeliveryFailed)
	}
	if err := p.deliverer.Deliver(ctx, report, destination); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	report.Delivered = true
	report.Destination = destination
	return nil
}

func (p *Pipeline) publish(ctx context.Context, report *domain.RunReport) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, report); err != nil {
		p.warn("publish run report", "run_id", report.RunID, "error", err)
	}
}

func (p *Pipeline) runLogger(report *domain.RunReport) *slog.Logger {
	logger := p.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("run_id", report.RunID, "source", report.Source, "dry_run", report.DryRun)
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
