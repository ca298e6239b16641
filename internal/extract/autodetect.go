package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

// AutoPrefix marks keys synthesized from free-form "label: value" lines
const AutoPrefix = "auto_"

// AutoDetect captures "label: value" lines that no library field covers
type AutoDetect struct {
	opts   Options
	known  map[string]bool
	fields []*regexp.Regexp
}

// NewAutoDetect builds the heuristic with the library keys, labels and field
// patterns as exclusions
func NewAutoDetect(lib *patterns.Library, opts Options) *AutoDetect {
	known := make(map[string]bool)
	for _, f := range lib.AllLabeled() {
		known[f.Key] = true
		if slug := Slug(f.Label); slug != "" {
			known[slug] = true
		}
	}
	for _, g := range lib.Groups() {
		for _, k := range g.Keys {
			known[k] = true
		}
	}

	matcher := patterns.NewMatcher()
	var fields []*regexp.Regexp
	for _, f := range lib.Fields() {
		for _, p := range f.Patterns {
			if re, err := matcher.Compile(p); err == nil {
				fields = append(fields, re)
			}
		}
	}

	return &AutoDetect{opts: opts.withDefaults(), known: known, fields: fields}
}

func (e *AutoDetect) Name() string { return "auto_detect" }

func (e *AutoDetect) Extract(text, _ string) map[string]string {
	out := make(map[string]string)

	for _, line := range strings.Split(text, "\n") {
		if len(out) >= e.opts.AutoFieldCap {
			break
		}

		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		label, value := line[:colon], line[colon+1:]
		label = strings.TrimSpace(label)
		value = patterns.Clean(value)

		labelLen := utf8.RuneCountInString(label)
		valueLen := utf8.RuneCountInString(value)
		if labelLen == 0 || labelLen >= e.opts.AutoLabelMax {
			continue
		}
		if valueLen < e.opts.AutoValueMin || valueLen > e.opts.AutoValueMax {
			continue
		}

		slug := Slug(label)
		if slug == "" || e.known[slug] || e.covered(line, colon) {
			continue
		}

		key := AutoPrefix + slug
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = value
	}

	return out
}

// covered reports whether a library field pattern matches starting inside
// the label part of line. Matches that begin in the value, such as a bare
// value fallback, do not count.
func (e *AutoDetect) covered(line string, colon int) bool {
	for _, re := range e.fields {
		if loc := re.FindStringIndex(line); loc != nil && loc[0] < colon {
			return true
		}
	}
	return false
}

// Slug folds accents, lowercases, drops anything but letters, digits and
// spaces, and joins the words with underscores
func Slug(label string) string {
	folded, _, err := transform.String(foldAccents(), label)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), "_")
}

// foldAccents is created per call since transformers carry state
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
