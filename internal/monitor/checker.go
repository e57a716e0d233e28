package monitor

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nerrad567/sitewatch/internal/infrastructure/logging"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Checker probes websites over HTTP and classifies the responses.
//
// Thread Safety:
//   - Check may be called concurrently; the underlying http.Client is
//     safe for concurrent use.
type Checker struct {
	client *http.Client
	log    *logging.Logger
}

// NewChecker creates a Checker whose requests give up after the supplied
// timeout.
func NewChecker(timeout time.Duration, log *logging.Logger) *Checker {
	return &Checker{
		client: &http.Client{Timeout: timeout},
		log:    log.With("component", "checker"),
	}
}

// Check fetches a site once and classifies the outcome.
//
// The expected HTTP status plus the expected content present in the body
// is StatusUp; the right status without the content is StatusPartiallyUp;
// a wrong status or a failed request is StatusDown. Dead-check rules run
// against the body afterwards and override the classification, except when
// the request itself failed and there is no body to inspect.
func (c *Checker) Check(ctx context.Context, site Site) CheckResult {
	result := CheckResult{Site: site.Name, CheckedAt: time.Now().UTC()}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.URL, nil)
	if err != nil {
		c.log.Warn("building request failed", "site", site.Name, "error", err)
		result.Status = StatusDown
		return result
	}

	resp, err := c.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		c.log.Warn("site unreachable", "site", site.Name, "error", err)
		result.Status = StatusDown
		return result
	}
	defer resp.Body.Close() //nolint:errcheck // response body, read side only
	result.HTTPStatus = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("reading response failed", "site", site.Name, "error", err)
		result.Status = StatusDown
		return result
	}
	page := string(body)

	status := StatusDown
	if resp.StatusCode == site.ExpectedStatus {
		if containsNormalized(site.ExpectedContent, page, site.CaseSensitive) {
			status = StatusUp
		} else {
			c.log.Warn("expected content missing", "site", site.Name)
			status = StatusPartiallyUp
		}
	} else {
		c.log.Warn("unexpected response status",
			"site", site.Name, "status", resp.StatusCode, "want", site.ExpectedStatus)
	}
	result.Status = applyDeadChecks(page, site.DeadChecks, status)
	return result
}

// applyDeadChecks returns the response of the first rule whose keyword
// appears in the page, or the fallback when none match. The lowercased
// page is computed at most once across case-insensitive rules.
func applyDeadChecks(page string, rules []DeadCheck, fallback Status) Status {
	var lowered string
	for _, rule := range rules {
		haystack, needle := page, rule.Keyword
		if !rule.CaseSensitive {
			if lowered == "" {
				lowered = strings.ToLower(page)
			}
			haystack = lowered
			needle = strings.ToLower(rule.Keyword)
		}
		if containsNormalized(needle, haystack, true) {
			return rule.Response
		}
	}
	return fallback
}

// containsNormalized reports whether needle occurs in haystack after runs
// of whitespace collapse to single spaces. Both sides are lowercased
// unless the search is case sensitive; the haystack is trimmed.
func containsNormalized(needle, haystack string, caseSensitive bool) bool {
	needle = whitespaceRun.ReplaceAllString(needle, " ")
	haystack = strings.TrimSpace(whitespaceRun.ReplaceAllString(haystack, " "))
	if !caseSensitive {
		needle = strings.ToLower(needle)
		haystack = strings.ToLower(haystack)
	}
	return strings.Contains(haystack, needle)
}
