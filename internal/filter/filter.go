// Package filter matches container log lines against a user query. A query
// is free text matched case-insensitively across the line, optionally with
// level=<name> and regex (~pattern) tokens.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

var knownLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "warning": {},
	"error": {}, "err": {}, "fatal": {}, "panic": {},
}

// Filter holds a parsed log query. The zero value matches everything.
type Filter struct {
	raw   string
	terms []string
	level string
	regex *regexp.Regexp
}

// New creates a new empty filter.
func New() *Filter {
	return &Filter{}
}

// Parse builds a filter from a query string. Supported tokens:
//   - level=error        match lines carrying the level
//   - ~pattern           match lines against a regular expression
//   - anything else      case-insensitive substring, all terms must match
func Parse(input string) (*Filter, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return New(), nil
	}

	f := &Filter{raw: input}
	for _, token := range strings.Fields(input) {
		switch {
		case strings.HasPrefix(token, "level="):
			level := strings.ToLower(strings.TrimPrefix(token, "level="))
			if _, ok := knownLevels[level]; !ok {
				return nil, fmt.Errorf("unknown level %q", level)
			}
			f.level = strings.ToUpper(level)
		case strings.HasPrefix(token, "~"):
			pattern := strings.TrimPrefix(token, "~")
			if pattern == "" {
				return nil, fmt.Errorf("empty regex pattern")
			}
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("compile regex: %w", err)
			}
			f.regex = re
		default:
			f.terms = append(f.terms, strings.ToLower(token))
		}
	}
	return f, nil
}

// Match reports whether a single log line satisfies every token.
func (f *Filter) Match(line string) bool {
	if f.IsEmpty() {
		return true
	}

	if f.level != "" && !hasLevel(line, f.level) {
		return false
	}
	if f.regex != nil && !f.regex.MatchString(line) {
		return false
	}

	lower := strings.ToLower(line)
	for _, term := range f.terms {
		if !strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// Apply keeps only matching lines of a log tail.
func (f *Filter) Apply(text string) string {
	if f.IsEmpty() {
		return text
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" && f.Match(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// String returns the original query for display.
func (f *Filter) String() string {
	return f.raw
}

// IsEmpty reports whether the filter matches everything.
func (f *Filter) IsEmpty() bool {
	return f.level == "" && f.regex == nil && len(f.terms) == 0
}

// hasLevel looks for the level as its own token, tolerating brackets and
// trailing colons the way container logs usually carry them.
func hasLevel(line, level string) bool {
	upper := strings.ToUpper(line)
	idx := strings.Index(upper, level)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(upper[idx-1])
		afterIdx := idx + len(level)
		after := afterIdx >= len(upper) || !isWordChar(upper[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(upper[idx+1:], level)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}
