// Package extract turns the plain text of a credit report into field values.
// Every extractor is pure: it reads the text and returns only what it found.
package extract

import (
	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

// Auto-detect defaults
const (
	DefaultAutoFieldCap = 20
	DefaultAutoValueMin = 5
	DefaultAutoValueMax = 100
	DefaultAutoLabelMax = 50
)

// Extractor produces field values from report text
type Extractor interface {
	Name() string
	Extract(text, source string) map[string]string
}

// Options tunes the free-form auto-detection heuristic
type Options struct {
	AutoFieldCap int
	AutoValueMin int
	AutoValueMax int
	AutoLabelMax int
}

// DefaultOptions returns the auto-detect bounds used when none are configured
func DefaultOptions() Options {
	return Options{
		AutoFieldCap: DefaultAutoFieldCap,
		AutoValueMin: DefaultAutoValueMin,
		AutoValueMax: DefaultAutoValueMax,
		AutoLabelMax: DefaultAutoLabelMax,
	}
}

// withDefaults replaces non-positive bounds with their defaults
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AutoFieldCap <= 0 {
		o.AutoFieldCap = d.AutoFieldCap
	}
	if o.AutoValueMin <= 0 {
		o.AutoValueMin = d.AutoValueMin
	}
	if o.AutoValueMax <= 0 {
		o.AutoValueMax = d.AutoValueMax
	}
	if o.AutoLabelMax <= 0 {
		o.AutoLabelMax = d.AutoLabelMax
	}
	return o
}

// Registry returns the closed, ordered extractor set. On a key collision the
// later extractor wins, so auto-detection runs last.
func Registry(lib *patterns.Library, opts Options) []Extractor {
	return []Extractor{
		NewIdentity(lib),
		NewSectorTables(lib),
		NewTenure(lib),
		NewSection("demographics", lib, patterns.SectionDemographics),
		NewSection("obligations", lib, patterns.SectionObligations),
		NewSection("judicial", lib, patterns.SectionJudicial),
		NewSection("consultations", lib, patterns.SectionConsultations),
		NewSection("score", lib, patterns.SectionScore),
		NewAutoDetect(lib, opts),
	}
}

// Run applies extractors in order and merges their results
func Run(extractors []Extractor, text, source string) map[string]string {
	fields := make(map[string]string)
	for _, e := range extractors {
		for k, v := range e.Extract(text, source) {
			fields[k] = v
		}
	}
	return fields
}
