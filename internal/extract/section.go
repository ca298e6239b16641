package extract

import (
	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

// Section applies every field of one library section through MatchFirst
type Section struct {
	name    string
	fields  []patterns.Field
	matcher *patterns.Matcher
}

// NewSection builds an extractor over the fields of a library section
func NewSection(name string, lib *patterns.Library, section string) *Section {
	return &Section{
		name:    name,
		fields:  lib.Section(section),
		matcher: lib.Matcher(),
	}
}

func (s *Section) Name() string { return s.name }

func (s *Section) Extract(text, _ string) map[string]string {
	return matchFields(s.matcher, s.fields, text)
}

func matchFields(m *patterns.Matcher, fields []patterns.Field, text string) map[string]string {
	out := make(map[string]string)
	for _, f := range fields {
		if res, ok := m.MatchFirst(f.Patterns, text); ok {
			out[f.Key] = res.Value
		}
	}
	return out
}
