package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	DefaultMaxAgeDays       = 7
	DefaultDetailFetchLimit = 40
	DefaultStrategy         = "generic"
)

// Source is the configuration of one careers site.
type Source struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	ListURL           string   `json:"list_url"`
	SearchURL         string   `json:"search_url,omitempty"`
	Strategy          string   `json:"strategy"`
	RoleKeywords      []string `json:"role_keywords"`
	MaxAgeDays        int      `json:"max_age_days"`
	DetailFetchLimit  int      `json:"detail_fetch_limit"`
	JobPathPattern    string   `json:"job_path_pattern,omitempty"`
	AllowedHosts      []string `json:"allowed_hosts,omitempty"`
	KeepQueryParams   []string `json:"keep_query_params,omitempty"`
	IncludeUnknownAge bool     `json:"include_unknown_age"`
	TrustListingDates bool     `json:"trust_listing_dates"`
	DayFirst          bool     `json:"day_first"`
	Recipient         string   `json:"recipient,omitempty"`
	Active            bool     `json:"active"`
}

// NewSource returns a source with default limits, active.
func NewSource(name, listURL string) Source {
	return Source{
		Name:             name,
		ListURL:          listURL,
		Strategy:         DefaultStrategy,
		MaxAgeDays:       DefaultMaxAgeDays,
		DetailFetchLimit: DefaultDetailFetchLimit,
		Active:           true,
	}
}

// Validate checks the fields the pipeline relies on.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	if err := validateAbsoluteURL(s.ListURL); err != nil {
		return fmt.Errorf("%w: list_url: %v", ErrInvalidSource, err)
	}
	if s.SearchURL != "" {
		if err := validateAbsoluteURL(s.SearchURL); err != nil {
			return fmt.Errorf("%w: search_url: %v", ErrInvalidSource, err)
		}
	}
	if s.MaxAgeDays < 0 {
		return fmt.Errorf("%w: max_age_days must be >= 0", ErrInvalidSource)
	}
	if s.DetailFetchLimit < 0 {
		return fmt.Errorf("%w: detail_fetch_limit must be >= 0", ErrInvalidSource)
	}
	if s.JobPathPattern != "" {
		if _, err := regexp.Compile(s.JobPathPattern); err != nil {
			return fmt.Errorf("%w: job_path_pattern: %v", ErrInvalidSource, err)
		}
	}
	return nil
}

// Keywords returns the non-blank role keywords, trimmed.
func (s Source) Keywords() []string {
	out := make([]string, 0, len(s.RoleKeywords))
	for _, kw := range s.RoleKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
