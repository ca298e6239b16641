package intelligence

import "time"

// ReportType identifies the kind of credit report a text comes from
type ReportType string

const (
	ReportTypeDataCredito ReportType = "datacredito"
	ReportTypeOtherBureau ReportType = "other_bureau"
	ReportTypeUnknown     ReportType = "unknown"
)

// Reason is one piece of evidence behind a classification
type Reason struct {
	Rule       string  `json:"rule"`
	Category   string  `json:"category"` // keyword or pattern
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// Alternative is a runner-up classification
type Alternative struct {
	Type       ReportType `json:"type"`
	Confidence float64    `json:"confidence"`
}

// Rule scores one report type from keywords and regex patterns
type Rule struct {
	Name            string     `json:"name" yaml:"name"`
	ReportType      ReportType `json:"report_type" yaml:"report_type"`
	Keywords        []string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	KeywordPatterns []string   `json:"keyword_patterns,omitempty" yaml:"keyword_patterns,omitempty"`

	Weight        float64 `json:"weight" yaml:"weight"`                 // 0.0 to 1.0
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"` // below this the rule is ignored

	Description string `json:"description" yaml:"description"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
}

// RuleSet is the on-disk form of custom rules
type RuleSet struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Config tunes the classifier
type Config struct {
	MinConfidenceThreshold float64 `json:"min_confidence_threshold"`
	MaxAlternatives        int     `json:"max_alternatives"`
	KeywordCaseSensitive   bool    `json:"keyword_case_sensitive"`
	CacheClassifications   bool    `json:"cache_classifications"`
	MaxCacheEntries        int     `json:"max_cache_entries"`
	CustomRulesPath        string  `json:"custom_rules_path,omitempty"`
}

// Result is the outcome of classifying one text
type Result struct {
	Type         ReportType    `json:"type"`
	Confidence   float64       `json:"confidence"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Reasons      []Reason      `json:"reasons"`
	RulesApplied []string      `json:"rules_applied"`
	Version      string        `json:"version"`
	ClassifiedAt time.Time     `json:"classified_at"`
}

// DefaultConfig returns the classifier defaults
func DefaultConfig() Config {
	return Config{
		MinConfidenceThreshold: 0.5,
		MaxAlternatives:        2,
		KeywordCaseSensitive:   false,
		CacheClassifications:   true,
		MaxCacheEntries:        256,
	}
}

// DisplayName returns the Spanish label of a report type
func (rt ReportType) DisplayName() string {
	switch rt {
	case ReportTypeDataCredito:
		return "Reporte DataCrédito"
	case ReportTypeOtherBureau:
		return "Reporte de otra central de riesgo"
	default:
		return "Documento no reconocido"
	}
}

// IsValid reports whether rt is a known type
func (rt ReportType) IsValid() bool {
	for _, t := range AllReportTypes() {
		if rt == t {
			return true
		}
	}
	return false
}

// AllReportTypes returns every report type
func AllReportTypes() []ReportType {
	return []ReportType{ReportTypeDataCredito, ReportTypeOtherBureau, ReportTypeUnknown}
}
