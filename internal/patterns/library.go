package patterns

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed library.yaml
var defaultLibrary []byte

// Number of positional columns in a sector table row and the tenure row
const (
	SectorColumnCount = 7
	TenureFieldCount  = 3
)

// Library is the immutable set of field definitions and lookup tables the
// extractors, aggregator and workbook share
type Library struct {
	version               string
	fields                []Field
	derived               []Field
	sectorSubfields       []Subfield
	sectorCategories      []Category
	tenure                Tenure
	consultedByExclusions []string
	priorityColumns       []string
	numericFields         []string
	headerWords           map[string]string

	byKey   map[string]Field
	numeric map[string]bool
	matcher *Matcher
}

// Default returns the library embedded in the binary
func Default() (*Library, error) {
	return Parse(defaultLibrary)
}

// MustDefault returns the embedded library and panics if it is malformed
func MustDefault() *Library {
	lib, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded pattern library is invalid: %v", err))
	}
	return lib
}

// Parse builds a library from YAML data
func Parse(data []byte) (*Library, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pattern library: %w", err)
	}

	lib := newLibrary(doc)
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// LoadFile reads a user YAML file and merges it over the embedded library.
// Fields with an existing key have their definition replaced, new keys are
// appended, and any non-empty table replaces the default table.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern library %s: %w", path, err)
	}

	var base document
	if err := yaml.Unmarshal(defaultLibrary, &base); err != nil {
		return nil, fmt.Errorf("failed to parse embedded pattern library: %w", err)
	}

	var override document
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse pattern library %s: %w", path, err)
	}

	lib := newLibrary(merge(base, override))
	if err := lib.Validate(); err != nil {
		return nil, fmt.Errorf("pattern library %s: %w", path, err)
	}
	return lib, nil
}

// Load returns the embedded library when path is empty, otherwise the merged
// override
func Load(path string) (*Library, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

func merge(base, override document) document {
	out := base

	if override.Version != "" {
		out.Version = override.Version
	}

	out.Fields = mergeFields(base.Fields, override.Fields)
	out.Derived = mergeFields(base.Derived, override.Derived)

	if len(override.SectorSubfields) > 0 {
		out.SectorSubfields = override.SectorSubfields
	}
	if len(override.SectorCategories) > 0 {
		out.SectorCategories = override.SectorCategories
	}
	if override.Tenure != nil {
		out.Tenure = override.Tenure
	}
	if len(override.ConsultedByExclusions) > 0 {
		out.ConsultedByExclusions = override.ConsultedByExclusions
	}
	if len(override.PriorityColumns) > 0 {
		out.PriorityColumns = override.PriorityColumns
	}
	if len(override.NumericFields) > 0 {
		out.NumericFields = override.NumericFields
	}
	if len(override.HeaderWords) > 0 {
		words := make(map[string]string, len(base.HeaderWords)+len(override.HeaderWords))
		for k, v := range base.HeaderWords {
			words[k] = v
		}
		for k, v := range override.HeaderWords {
			words[k] = v
		}
		out.HeaderWords = words
	}

	return out
}

func mergeFields(base, override []Field) []Field {
	out := make([]Field, len(base))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.Key] = i
	}

	for _, f := range override {
		i, exists := index[f.Key]
		if !exists {
			index[f.Key] = len(out)
			out = append(out, f)
			continue
		}

		current := out[i]
		if f.Label != "" {
			current.Label = f.Label
		}
		if f.Kind != "" {
			current.Kind = f.Kind
		}
		if f.Section != "" {
			current.Section = f.Section
		}
		if len(f.Patterns) > 0 {
			current.Patterns = f.Patterns
		}
		out[i] = current
	}

	return out
}

func newLibrary(doc document) *Library {
	lib := &Library{
		version:               doc.Version,
		fields:                doc.Fields,
		derived:               doc.Derived,
		sectorSubfields:       doc.SectorSubfields,
		sectorCategories:      doc.SectorCategories,
		consultedByExclusions: doc.ConsultedByExclusions,
		priorityColumns:       doc.PriorityColumns,
		numericFields:         doc.NumericFields,
		headerWords:           doc.HeaderWords,
		byKey:                 make(map[string]Field),
		numeric:               make(map[string]bool),
		matcher:               NewMatcher(),
	}
	if doc.Tenure != nil {
		lib.tenure = *doc.Tenure
	}
	if lib.headerWords == nil {
		lib.headerWords = map[string]string{}
	}

	for _, f := range lib.fields {
		lib.byKey[f.Key] = f
		if f.Kind == KindNumeric {
			lib.numeric[f.Key] = true
		}
	}
	for _, f := range lib.derived {
		lib.byKey[f.Key] = f
		if f.Kind == KindNumeric {
			lib.numeric[f.Key] = true
		}
	}
	for _, cat := range lib.sectorCategories {
		for _, sub := range lib.sectorSubfields {
			lib.numeric[SectorKey(cat.Key, sub.Key)] = true
		}
	}
	for _, key := range lib.numericFields {
		lib.numeric[key] = true
	}

	return lib
}

// Validate checks that every pattern compiles and the tables are well formed
func (l *Library) Validate() error {
	if len(l.fields) == 0 {
		return errors.New("pattern library has no fields")
	}

	seen := make(map[string]bool)
	for _, f := range append(append([]Field{}, l.fields...), l.derived...) {
		if strings.TrimSpace(f.Key) == "" {
			return errors.New("field with empty key")
		}
		if seen[f.Key] {
			return fmt.Errorf("duplicate field key: %s", f.Key)
		}
		seen[f.Key] = true

		if !f.Kind.IsValid() {
			return fmt.Errorf("field %s: invalid kind %q", f.Key, f.Kind)
		}
		for i, p := range f.Patterns {
			if _, err := regexp.Compile(Flags + p); err != nil {
				return fmt.Errorf("field %s: pattern %d does not compile: %w", f.Key, i, err)
			}
		}
	}

	if len(l.sectorSubfields) != SectorColumnCount {
		return fmt.Errorf("sector table needs %d subfields, got %d", SectorColumnCount, len(l.sectorSubfields))
	}
	for _, cat := range l.sectorCategories {
		if cat.Key == "" || cat.Pattern == "" {
			return errors.New("sector category needs key and pattern")
		}
		if _, err := regexp.Compile(Flags + cat.Pattern); err != nil {
			return fmt.Errorf("sector category %s: pattern does not compile: %w", cat.Key, err)
		}
	}

	if len(l.tenure.Fields) != TenureFieldCount {
		return fmt.Errorf("tenure row needs %d fields, got %d", TenureFieldCount, len(l.tenure.Fields))
	}
	if _, err := regexp.Compile(Flags + l.tenure.LabelPattern); err != nil {
		return fmt.Errorf("tenure label pattern does not compile: %w", err)
	}
	if _, err := regexp.Compile(l.tenure.DatePattern); err != nil {
		return fmt.Errorf("tenure date pattern does not compile: %w", err)
	}

	return nil
}

// Version returns the library document version
func (l *Library) Version() string {
	return l.version
}

// Fields returns the pattern-backed fields in declaration order
func (l *Library) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Section returns the pattern-backed fields that belong to a section
func (l *Library) Section(name string) []Field {
	var out []Field
	for _, f := range l.fields {
		if f.Section == name {
			out = append(out, f)
		}
	}
	return out
}

// Field looks up a field or derived field definition by key
func (l *Library) Field(key string) (Field, bool) {
	f, ok := l.byKey[key]
	return f, ok
}

// AllLabeled returns pattern and derived fields, used for auto-detect exclusion
func (l *Library) AllLabeled() []Field {
	out := make([]Field, 0, len(l.fields)+len(l.derived))
	out = append(out, l.fields...)
	out = append(out, l.derived...)
	return out
}

func (l *Library) SectorCategories() []Category {
	out := make([]Category, len(l.sectorCategories))
	copy(out, l.sectorCategories)
	return out
}

func (l *Library) SectorSubfields() []Subfield {
	out := make([]Subfield, len(l.sectorSubfields))
	copy(out, l.sectorSubfields)
	return out
}

func (l *Library) Tenure() Tenure {
	t := l.tenure
	t.Fields = append([]Subfield(nil), l.tenure.Fields...)
	return t
}

func (l *Library) ConsultedByExclusions() []string {
	return append([]string(nil), l.consultedByExclusions...)
}

func (l *Library) PriorityColumns() []string {
	return append([]string(nil), l.priorityColumns...)
}

// HeaderWord returns the accented spelling for a lowercase header word
func (l *Library) HeaderWord(word string) (string, bool) {
	w, ok := l.headerWords[word]
	return w, ok
}

// IsNumeric reports whether a column defaults to "0" instead of the text default
func (l *Library) IsNumeric(key string) bool {
	return l.numeric[key]
}

// Matcher returns the compiled-pattern cache shared by the extractors
func (l *Library) Matcher() *Matcher {
	return l.matcher
}

// SectorKey builds the column key for one cell of a sector table
func SectorKey(category, subfield string) string {
	return category + "_" + subfield
}

// Groups returns the umbrella header groups: one per sector category plus the
// tenure row
func (l *Library) Groups() []Group {
	groups := make([]Group, 0, len(l.sectorCategories)+1)

	for _, cat := range l.sectorCategories {
		g := Group{Label: cat.Label, SubLabels: make(map[string]string, len(l.sectorSubfields))}
		for _, sub := range l.sectorSubfields {
			key := SectorKey(cat.Key, sub.Key)
			g.Keys = append(g.Keys, key)
			g.SubLabels[key] = sub.Label
		}
		groups = append(groups, g)
	}

	tenure := Group{Label: l.tenure.Label, SubLabels: make(map[string]string, len(l.tenure.Fields))}
	for _, f := range l.tenure.Fields {
		tenure.Keys = append(tenure.Keys, f.Key)
		tenure.SubLabels[f.Key] = f.Label
	}
	groups = append(groups, tenure)

	return groups
}

// Label returns the display label for a field key, or "" when none is known
func (l *Library) Label(key string) string {
	if f, ok := l.byKey[key]; ok {
		return f.Label
	}
	for _, g := range l.Groups() {
		if sub, ok := g.SubLabels[key]; ok {
			return sub
		}
	}
	return ""
}
