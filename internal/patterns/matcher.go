package patterns

import (
	"regexp"
	"strings"
	"sync"
)

// Flags is prepended to every library pattern: case-insensitive, ^ and $
// match at line boundaries
const Flags = "(?im)"

// MatchResult is the cleaned value of the first pattern that produced one
type MatchResult struct {
	Value        string
	PatternIndex int
	Offset       int
}

// Matcher compiles patterns once and caches them by source text
type Matcher struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// NewMatcher creates an empty matcher
func NewMatcher() *Matcher {
	return &Matcher{
		cache: make(map[string]*regexp.Regexp),
	}
}

// Compile returns the cached regexp for a pattern, compiling it with Flags
// on first use
func (m *Matcher) Compile(pattern string) (*regexp.Regexp, error) {
	m.mu.RLock()
	re, ok := m.cache[pattern]
	m.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(Flags + pattern)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[pattern] = re
	m.mu.Unlock()
	return re, nil
}

// MatchFirst tries patterns in order and returns the first non-empty value.
// Patterns that fail to compile are skipped.
func (m *Matcher) MatchFirst(patterns []string, text string) (MatchResult, bool) {
	for i, pattern := range patterns {
		re, err := m.Compile(pattern)
		if err != nil {
			continue
		}

		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}

		start, end := loc[0], loc[1]
		if re.NumSubexp() > 0 {
			start, end = loc[2], loc[3]
			if start < 0 {
				continue
			}
		}

		value := Clean(text[start:end])
		if value == "" {
			continue
		}

		return MatchResult{Value: value, PatternIndex: i, Offset: start}, true
	}

	return MatchResult{}, false
}

// Clean trims a value and collapses internal whitespace runs to one space
func Clean(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

var defaultMatcher = NewMatcher()

// MatchFirst runs patterns against text with the package-level cache
func MatchFirst(patterns []string, text string) (MatchResult, bool) {
	return defaultMatcher.MatchFirst(patterns, text)
}
