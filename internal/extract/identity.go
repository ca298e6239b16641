package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

const (
	PersonNatural  = "NATURAL"
	PersonJuridica = "JURIDICA"
	DocumentNIT    = "NIT"
)

var (
	meridiemPattern  = regexp.MustCompile(`(?i)\b(AM|PM)\b`)
	consultedByLabel = regexp.MustCompile(`(?i)consultado\s+por`)
	nameDashNumber   = regexp.MustCompile(`^([A-Za-záéíóúñÁÉÍÓÚÑ ]+?)\s*-\s*\d+`)
)

// Identity extracts who the report is about and who requested it
type Identity struct {
	fields     []patterns.Field
	matcher    *patterns.Matcher
	exclusions map[string]bool
}

// NewIdentity builds the identity extractor from the library
func NewIdentity(lib *patterns.Library) *Identity {
	exclusions := make(map[string]bool)
	for _, e := range lib.ConsultedByExclusions() {
		upper := strings.ToUpper(strings.TrimSpace(e))
		exclusions[upper] = true
		exclusions[strings.ReplaceAll(upper, ".", "")] = true
	}

	return &Identity{
		fields:     lib.Section(patterns.SectionIdentity),
		matcher:    lib.Matcher(),
		exclusions: exclusions,
	}
}

func (e *Identity) Name() string { return "identity" }

func (e *Identity) Extract(text, _ string) map[string]string {
	out := matchFields(e.matcher, e.fields, text)

	if who := e.consultedBy(text); who != "" {
		out["consultado_por"] = who
	}

	if nit, ok := out["nit"]; ok {
		out["tipo_documento"] = DocumentNIT
		out["numero_documento"] = nit
		out["tipo_persona"] = PersonJuridica
		return out
	}

	if name, ok := out["nombre"]; ok {
		out["tipo_persona"] = PersonNatural
		for k, v := range splitName(name) {
			out[k] = v
		}
	}

	return out
}

// consultedBy finds the natural person who ran the query. Company names and
// NITs that follow the person on the same line are cut off.
func (e *Identity) consultedBy(text string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		loc := consultedByLabel.FindStringIndex(line)
		if loc == nil {
			continue
		}

		candidate := line[loc[1]:]
		if idx := strings.Index(candidate, ":"); idx >= 0 {
			candidate = candidate[idx+1:]
		}
		if strings.TrimSpace(candidate) == "" {
			candidate = nextNonEmpty(lines, i+1)
		}

		if name := e.personName(candidate); name != "" {
			return name
		}
	}

	for _, line := range lines {
		m := nameDashNumber.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if name := e.personName(m[1]); name != "" {
			return name
		}
	}

	return ""
}

// personName keeps the leading run of letter-only words up to the first
// corporate marker or token with digits. At least two words are required.
func (e *Identity) personName(candidate string) string {
	candidate = meridiemPattern.ReplaceAllString(candidate, "")
	if idx := strings.Index(candidate, " - "); idx >= 0 {
		candidate = candidate[:idx]
	}

	var words []string
	for _, token := range strings.Fields(candidate) {
		upper := strings.ToUpper(token)
		if e.exclusions[upper] || e.exclusions[strings.ReplaceAll(upper, ".", "")] {
			break
		}
		if !lettersOnly(token) {
			break
		}
		words = append(words, token)
	}

	if len(words) < 2 {
		return ""
	}
	return strings.Join(words, " ")
}

func nextNonEmpty(lines []string, from int) string {
	for j := from; j < len(lines); j++ {
		if s := strings.TrimSpace(lines[j]); s != "" {
			return s
		}
	}
	return ""
}

func lettersOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// splitName breaks a full name into given names and surnames
func splitName(name string) map[string]string {
	parts := strings.Fields(name)
	out := make(map[string]string)

	switch n := len(parts); {
	case n >= 4:
		out["primer_nombre"] = parts[0]
		out["segundo_nombre"] = strings.Join(parts[1:n-2], " ")
		out["primer_apellido"] = parts[n-2]
		out["segundo_apellido"] = parts[n-1]
	case n == 3:
		out["primer_nombre"] = parts[0]
		out["primer_apellido"] = parts[1]
		out["segundo_apellido"] = parts[2]
	case n == 2:
		out["primer_nombre"] = parts[0]
		out["primer_apellido"] = parts[1]
	case n == 1:
		out["primer_nombre"] = parts[0]
	}

	return out
}
