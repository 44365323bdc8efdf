// Package update checks a pinned GitHub raw URL for a newer manager
// release. The check is advisory: callers surface a hint and move on, a
// failed check is never fatal.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultURL serves the latest released version as a single line of text.
const DefaultURL = "https://raw.githubusercontent.com/conduit-manager/conduit-manager/main/VERSION"

const checkTimeout = 5 * time.Second

// Result is the outcome of one version check.
type Result struct {
	Current   string
	Latest    string
	Available bool
}

// Checker fetches and compares release versions.
type Checker struct {
	url     string
	current string
	client  *http.Client
}

// NewChecker builds a Checker for the running version. An empty url selects
// DefaultURL.
func NewChecker(current, url string) *Checker {
	if url == "" {
		url = DefaultURL
	}
	return &Checker{
		url:     url,
		current: current,
		client:  &http.Client{Timeout: checkTimeout},
	}
}

// Check fetches the latest version string and compares it to the running one.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build version request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetch version: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return Result{}, fmt.Errorf("read version response: %w", err)
	}

	latest := strings.TrimSpace(string(body))
	if latest == "" {
		return Result{}, fmt.Errorf("empty version response")
	}

	return Result{
		Current:   c.current,
		Latest:    latest,
		Available: CompareVersions(latest, c.current) > 0,
	}, nil
}

// CompareVersions compares two dotted numeric versions, ignoring a leading
// "v". It returns -1, 0 or 1. Non-numeric segments compare as strings.
func CompareVersions(a, b string) int {
	as := splitVersion(a)
	bs := splitVersion(b)

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := segment(as, i), segment(bs, i)
		an, aerr := strconv.Atoi(av)
		bn, berr := strconv.Atoi(bv)
		switch {
		case aerr == nil && berr == nil:
			if an != bn {
				return sign(an - bn)
			}
		default:
			if av != bv {
				if av < bv {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}

func splitVersion(v string) []string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	return strings.Split(v, ".")
}

func segment(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
