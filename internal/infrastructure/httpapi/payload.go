package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"JobWatch/internal/domain"
)

var errBadRequest = errors.New("bad request")

// DefaultKeywords apply when a new company names none.
var DefaultKeywords = []string{"software", "developer", "engineer"}

// companyPayload accepts the canonical field names plus the short aliases older clients send.
type companyPayload map[string]json.RawMessage

func (p companyPayload) source() (domain.Source, error) {
	name := p.str("name", "company")
	listURL := p.str("list_url", "careers")
	if name == "" || listURL == "" {
		return domain.Source{}, fmt.Errorf("%w: name/company and list_url/careers are required", errBadRequest)
	}

	src := domain.NewSource(name, listURL)
	src.SearchURL = p.str("search_url")
	if s := p.str("strategy"); s != "" {
		src.Strategy = s
	}
	src.JobPathPattern = p.str("job_path_pattern", "job_link_regex")
	src.Recipient = p.str("recipient")

	var err error
	if src.RoleKeywords, err = p.list("role_keywords", "keywords"); err != nil {
		return domain.Source{}, err
	}
	if len(src.RoleKeywords) == 0 {
		src.RoleKeywords = append([]string(nil), DefaultKeywords...)
	}
	if src.AllowedHosts, err = p.list("allowed_hosts"); err != nil {
		return domain.Source{}, err
	}
	if src.KeepQueryParams, err = p.list("keep_query_params"); err != nil {
		return domain.Source{}, err
	}
	if v, ok, err := p.number("max_age_days", "post_days", "postdays"); err != nil {
		return domain.Source{}, err
	} else if ok {
		src.MaxAgeDays = v
	}
	if v, ok, err := p.number("detail_fetch_limit"); err != nil {
		return domain.Source{}, err
	} else if ok {
		src.DetailFetchLimit = v
	}
	for key, dst := range map[string]*bool{
		"active":              &src.Active,
		"include_unknown_age": &src.IncludeUnknownAge,
		"trust_listing_dates": &src.TrustListingDates,
		"day_first":           &src.DayFirst,
	} {
		if err := p.flag(key, dst); err != nil {
			return domain.Source{}, err
		}
	}
	return src, nil
}

func (p companyPayload) raw(keys ...string) (string, json.RawMessage) {
	for _, k := range keys {
		if v, ok := p[k]; ok && string(v) != "null" {
			return k, v
		}
	}
	return "", nil
}

func (p companyPayload) str(keys ...string) string {
	_, raw := p.raw(keys...)
	var s string
	if raw == nil || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// list accepts either a JSON array of strings or a comma separated string.
func (p companyPayload) list(keys ...string) ([]string, error) {
	key, raw := p.raw(keys...)
	if raw == nil {
		return nil, nil
	}
	var csv string
	if err := json.Unmarshal(raw, &csv); err == nil {
		return domain.SplitCSV(csv), nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s must be a string or a list of strings", errBadRequest, key)
	}
	return domain.SplitCSV(strings.Join(items, ",")), nil
}

// number accepts a JSON number or a numeric string.
func (p companyPayload) number(keys ...string) (int, bool, error) {
	key, raw := p.raw(keys...)
	if raw == nil {
		return 0, false, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
}

func (p companyPayload) flag(key string, dst *bool) error {
	_, raw := p.raw(key)
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s must be a boolean", errBadRequest, key)
	}
	return nil
}
