package parser

import (
	"context"
	"fmt"
	"log/slog"

	"JobWatch/internal/domain"
	"JobWatch/internal/linknorm"
	"JobWatch/internal/ports"
	"JobWatch/internal/scanner"
)

// StrategySource implements ListingSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

var _ ports.ListingSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry.
func NewStrategySource(reg *scanner.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		logger:   log,
	}
}

// Prepare resolves the source's strategy, applies its defaults and validates the result.
func (s *StrategySource) Prepare(src domain.Source) (domain.Source, error) {
	strategy, err := s.resolve(src)
	if err != nil {
		return src, err
	}
	if d, ok := strategy.(scanner.Defaulter); ok {
		src = d.ApplyDefaults(src)
	}
	if err := src.Validate(); err != nil {
		return src, err
	}
	return src, nil
}

// FetchListing executes the source's scanner. Any failure means the source is unreachable.
func (s *StrategySource) FetchListing(ctx context.Context, fetcher ports.PageFetcher, src domain.Source) (*domain.Listing, error) {
	strategy, err := s.resolve(src)
	if err != nil {
		return nil, err
	}

	rules, err := linknorm.RulesFor(src)
	if err != nil {
		return nil, err
	}

	s.debug("fetch listing", "source", src.Name, "scanner", strategy.Name(), "url", src.ListURL)

	listing, err := strategy.Scan(ctx, scanner.Request{Source: src, Fetcher: fetcher, Rules: rules})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnreachable, src.Name, err)
	}

	s.debug("listing ready", "source", src.Name, "mode", listing.Mode)
	return listing, nil
}

func (s *StrategySource) resolve(src domain.Source) (scanner.Scanner, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	name := src.Strategy
	if name == "" {
		name = domain.DefaultStrategy
	}
	strategy, err := s.registry.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %v", domain.ErrInvalidSource, src.Name, err)
	}
	return strategy, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
