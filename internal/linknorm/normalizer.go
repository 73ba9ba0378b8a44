// Package linknorm classifies links found on careers pages and canonicalizes job-detail URLs.
package linknorm

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"JobWatch/internal/domain"
)

// DefaultJobPath matches paths under a jobs-like segment that carry a numeric identifier.
const DefaultJobPath = `(?i)/(?:jobs?|careers?|positions?|openings?|vacanc(?:y|ies)|postings?|requisitions?)/(?:[^/?#]+/)*[^/?#]*\d`

// ErrRejected is wrapped by every RejectError.
var ErrRejected = errors.New("link rejected")

// Reason explains why a link is noise.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonFragment    Reason = "fragment"
	ReasonPseudoLink  Reason = "pseudo-link"
	ReasonUnparseable Reason = "unparseable"
	ReasonScheme      Reason = "scheme"
	ReasonOffDomain   Reason = "off-domain"
	ReasonNotJobPath  Reason = "not-job-path"
)

// RejectError carries the rejected link and the reason.
type RejectError struct {
	Raw    string
	Reason Reason
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("link %q rejected: %s", e.Raw, e.Reason)
}

func (e *RejectError) Unwrap() error {
	return ErrRejected
}

var pseudoSchemes = []string{"mailto:", "javascript:", "tel:", "data:", "sms:"}

// Rules hold the per-source link policy.
type Rules struct {
	BaseDomain   string
	AllowedHosts []string
	JobPath      *regexp.Regexp
	KeepQuery    []string
}

// RulesFor derives link rules from a source: the registrable domain of its list URL and its job path pattern.
func RulesFor(src domain.Source) (Rules, error) {
	u, err := url.Parse(strings.TrimSpace(src.ListURL))
	if err != nil || u.Host == "" {
		return Rules{}, fmt.Errorf("%w: list_url %q", domain.ErrInvalidSource, src.ListURL)
	}

	pattern := src.JobPathPattern
	if pattern == "" {
		pattern = DefaultJobPath
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rules{}, fmt.Errorf("%w: job_path_pattern: %v", domain.ErrInvalidSource, err)
	}

	hosts := make([]string, 0, len(src.AllowedHosts))
	for _, h := range src.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}

	return Rules{
		BaseDomain:   RegistrableDomain(u.Hostname()),
		AllowedHosts: hosts,
		JobPath:      re,
		KeepQuery:    src.KeepQueryParams,
	}, nil
}

// RegistrableDomain returns eTLD+1 for host. IP addresses and hosts without a public suffix are returned as is.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}

// Normalize resolves raw against base and returns the canonical job URL, or a *RejectError.
func (r Rules) Normalize(raw string, base *url.URL) (string, error) {
	u, reason := r.resolve(raw, base)
	if reason != "" {
		return "", &RejectError{Raw: raw, Reason: reason}
	}
	if !r.hostAllowed(u.Hostname()) {
		return "", &RejectError{Raw: raw, Reason: ReasonOffDomain}
	}
	if !r.matchesPath(u) {
		return "", &RejectError{Raw: raw, Reason: ReasonNotJobPath}
	}
	return r.canonical(u), nil
}

// LooksLikeJob reports whether raw resolves to a path matching the job pattern. Host checks are left to Normalize.
func (r Rules) LooksLikeJob(raw string, base *url.URL) bool {
	u, reason := r.resolve(raw, base)
	if reason != "" {
		return false
	}
	return r.matchesPath(u)
}

func (r Rules) resolve(raw string, base *url.URL) (*url.URL, Reason) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ReasonEmpty
	}
	if strings.HasPrefix(trimmed, "#") {
		return nil, ReasonFragment
	}
	lower := strings.ToLower(trimmed)
	for _, p := range pseudoSchemes {
		if strings.HasPrefix(lower, p) {
			return nil, ReasonPseudoLink
		}
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return nil, ReasonUnparseable
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ReasonScheme
	}
	if u.Host == "" {
		return nil, ReasonUnparseable
	}
	return u, ""
}

func (r Rules) hostAllowed(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if underDomain(host, r.BaseDomain) {
		return true
	}
	for _, allowed := range r.AllowedHosts {
		if underDomain(host, allowed) {
			return true
		}
	}
	return false
}

func underDomain(host, domainName string) bool {
	if domainName == "" {
		return false
	}
	return host == domainName || strings.HasSuffix(host, "."+domainName)
}

func (r Rules) matchesPath(u *url.URL) bool {
	if r.JobPath == nil {
		return true
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return r.JobPath.MatchString(target)
}

func (r Rules) canonical(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !defaultPort(scheme, port) {
		host = net.JoinHostPort(host, port)
	}

	out := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     strings.TrimRight(u.Path, "/"),
		RawPath:  strings.TrimRight(u.RawPath, "/"),
		RawQuery: r.keptQuery(u.Query()),
	}
	return out.String()
}

func (r Rules) keptQuery(values url.Values) string {
	if len(r.KeepQuery) == 0 || len(values) == 0 {
		return ""
	}
	kept := url.Values{}
	keys := append([]string(nil), r.KeepQuery...)
	sort.Strings(keys)
	for _, key := range keys {
		if v, ok := values[key]; ok {
			kept[key] = v
		}
	}
	return kept.Encode()
}

func defaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}
