package scanner

import (
	"context"
	"fmt"
	"sort"

	"JobWatch/internal/domain"
	"JobWatch/internal/linknorm"
	"JobWatch/internal/ports"
)

// Request carries all parameters required to read one source's listing.
type Request struct {
	Source  domain.Source
	Fetcher ports.PageFetcher
	Rules   linknorm.Rules
}

// Scanner captures a single listing strategy (generic, html-only, site presets).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) (*domain.Listing, error)
}

// Defaulter is implemented by scanners that fill in site-specific source settings.
type Defaulter interface {
	ApplyDefaults(src domain.Source) domain.Source
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// Names lists registered scanners, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
