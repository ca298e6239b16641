package patterns

// Kind classifies the value a field carries
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
	KindDate    Kind = "date"
)

// Section names used by the extractor registry
const (
	SectionIdentity      = "identidad"
	SectionDemographics  = "demografia"
	SectionObligations   = "obligaciones"
	SectionJudicial      = "judicial"
	SectionConsultations = "consultas"
	SectionScore         = "score"
)

// IsValid checks if the kind is one of the known kinds
func (k Kind) IsValid() bool {
	switch k {
	case KindNumeric, KindText, KindDate:
		return true
	default:
		return false
	}
}

// Field is one semantic datum with its ordered candidate patterns
type Field struct {
	Key      string   `yaml:"key" json:"key"`
	Label    string   `yaml:"label" json:"label"`
	Kind     Kind     `yaml:"kind" json:"kind"`
	Section  string   `yaml:"section" json:"section"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// Subfield is one positional column of a sector table or tenure row
type Subfield struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

// Category is a sector-table row such as active or closed credits
type Category struct {
	Key     string `yaml:"key" json:"key"`
	Label   string `yaml:"label" json:"label"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Tenure describes the "since" dates row broken down by sector
type Tenure struct {
	Label        string     `yaml:"label" json:"label"`
	LabelPattern string     `yaml:"label_pattern" json:"label_pattern"`
	DatePattern  string     `yaml:"date_pattern" json:"date_pattern"`
	Fields       []Subfield `yaml:"fields" json:"fields"`
}

// Group is a set of contiguous columns rendered under one umbrella header
type Group struct {
	Label     string
	Keys      []string
	SubLabels map[string]string
}

// document is the on-disk shape of a pattern library
type document struct {
	Version               string            `yaml:"version"`
	Fields                []Field           `yaml:"fields"`
	Derived               []Field           `yaml:"derived"`
	SectorSubfields       []Subfield        `yaml:"sector_subfields"`
	SectorCategories      []Category        `yaml:"sector_categories"`
	Tenure                *Tenure           `yaml:"tenure"`
	ConsultedByExclusions []string          `yaml:"consulted_by_exclusions"`
	PriorityColumns       []string          `yaml:"priority_columns"`
	NumericFields         []string          `yaml:"numeric_fields"`
	HeaderWords           map[string]string `yaml:"header_words"`
}
