// Package intelligence recognizes DataCrédito reports among other PDFs with
// weighted keyword and pattern rules
package intelligence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	classifierVersion = "1.0.0"
	keywordScore      = 0.1
	patternScore      = 0.15
)

// compiledRule is a rule with its patterns ready to run
type compiledRule struct {
	Rule
	patterns []*regexp.Regexp
}

// Classifier performs rule-based report classification. It is safe for
// concurrent use.
type Classifier struct {
	config     Config
	rules      []compiledRule
	cache      map[string]Result
	cacheMutex sync.RWMutex
	now        func() time.Time
}

// NewClassifier creates a classifier with the default configuration
func NewClassifier() *Classifier {
	c, err := NewClassifierWithConfig(DefaultConfig())
	if err != nil {
		// the built-in rules always compile
		panic(err)
	}
	return c
}

// NewClassifierWithConfig creates a classifier and loads custom rules when
// the config names a file
func NewClassifierWithConfig(config Config) (*Classifier, error) {
	c := &Classifier{
		config: config,
		cache:  make(map[string]Result),
		now:    time.Now,
	}

	if err := c.addRules(defaultRules()); err != nil {
		return nil, err
	}

	if config.CustomRulesPath != "" {
		if err := c.LoadCustomRules(config.CustomRulesPath); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Classifier) addRules(rules []Rule) error {
	for _, rule := range rules {
		compiled := compiledRule{Rule: rule}
		for _, pattern := range rule.KeywordPatterns {
			if !c.config.KeywordCaseSensitive {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return fmt.Errorf("rule %s: invalid pattern %q: %w", rule.Name, pattern, err)
			}
			compiled.patterns = append(compiled.patterns, re)
		}
		c.rules = append(c.rules, compiled)
	}
	return nil
}

// Classify scores text against every enabled rule and returns the best type.
// Scores under the configured threshold yield ReportTypeUnknown.
func (c *Classifier) Classify(ctx context.Context, text string) (*Result, error) {
	if c.config.CacheClassifications {
		if cached, found := c.getCachedResult(text); found {
			return &cached, nil
		}
	}

	scores := make(map[ReportType]float64)
	reasons := make(map[ReportType][]Reason)
	var rulesApplied []string

	content := text
	if !c.config.KeywordCaseSensitive {
		content = strings.ToLower(text)
	}

	for _, rule := range c.rules {
		if !rule.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		confidence, ruleReasons := c.evaluateRule(rule, content)
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence < rule.MinConfidence || confidence == 0 {
			continue
		}

		scores[rule.ReportType] += confidence * rule.Weight
		reasons[rule.ReportType] = append(reasons[rule.ReportType], ruleReasons...)
		rulesApplied = append(rulesApplied, rule.Name)
	}

	primary, confidence := c.determinePrimary(scores)

	finalReasons := reasons[primary]
	if len(finalReasons) == 0 {
		finalReasons = []Reason{{
			Rule:       "default",
			Category:   "fallback",
			Evidence:   "No strong classification signals found",
			Confidence: confidence,
			Weight:     1.0,
		}}
	}
	if rulesApplied == nil {
		rulesApplied = []string{}
	}

	result := Result{
		Type:         primary,
		Confidence:   confidence,
		Alternatives: c.alternatives(scores, primary),
		Reasons:      finalReasons,
		RulesApplied: rulesApplied,
		Version:      classifierVersion,
		ClassifiedAt: c.now(),
	}

	if c.config.CacheClassifications {
		c.cacheResult(text, result)
	}

	return &result, nil
}

// evaluateRule counts keyword and pattern hits of one rule
func (c *Classifier) evaluateRule(rule compiledRule, content string) (float64, []Reason) {
	var confidence float64
	var reasons []Reason

	for _, keyword := range rule.Keywords {
		term := keyword
		if !c.config.KeywordCaseSensitive {
			term = strings.ToLower(keyword)
		}

		if count := strings.Count(content, term); count > 0 {
			score := keywordScore * float64(count)
			confidence += score
			reasons = append(reasons, Reason{
				Rule:       rule.Name,
				Category:   "keyword",
				Evidence:   fmt.Sprintf("Found keyword '%s' %d times", keyword, count),
				Confidence: score,
				Weight:     rule.Weight,
			})
		}
	}

	for i, re := range rule.patterns {
		if matches := re.FindAllStringIndex(content, -1); len(matches) > 0 {
			score := patternScore * float64(len(matches))
			confidence += score
			reasons = append(reasons, Reason{
				Rule:       rule.Name,
				Category:   "pattern",
				Evidence:   fmt.Sprintf("Pattern '%s' matched %d times", rule.KeywordPatterns[i], len(matches)),
				Confidence: score,
				Weight:     rule.Weight,
			})
		}
	}

	return confidence, reasons
}

// determinePrimary picks the highest score, in AllReportTypes order on ties
func (c *Classifier) determinePrimary(scores map[ReportType]float64) (ReportType, float64) {
	best := ReportTypeUnknown
	var bestScore float64

	for _, rt := range AllReportTypes() {
		if score := scores[rt]; score > bestScore {
			best, bestScore = rt, score
		}
	}

	if bestScore > 1.0 {
		bestScore = 1.0
	}
	if bestScore < c.config.MinConfidenceThreshold {
		return ReportTypeUnknown, bestScore
	}
	return best, bestScore
}

func (c *Classifier) alternatives(scores map[ReportType]float64, primary ReportType) []Alternative {
	var out []Alternative
	for rt, score := range scores {
		if rt == primary || score <= 0 {
			continue
		}
		if score > 1.0 {
			score = 1.0
		}
		out = append(out, Alternative{Type: rt, Confidence: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Type < out[j].Type
	})

	if c.config.MaxAlternatives >= 0 && len(out) > c.config.MaxAlternatives {
		out = out[:c.config.MaxAlternatives]
	}
	return out
}

// Cache management methods

func (c *Classifier) getCachedResult(text string) (Result, bool) {
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	result, found := c.cache[cacheKey(text)]
	return result, found
}

func (c *Classifier) cacheResult(text string, result Result) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	if c.config.MaxCacheEntries > 0 && len(c.cache) >= c.config.MaxCacheEntries {
		// drop an arbitrary entry
		for k := range c.cache {
			delete(c.cache, k)
			break
		}
	}
	c.cache[cacheKey(text)] = result
}

// CacheLen returns the number of cached classifications
func (c *Classifier) CacheLen() int {
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()
	return len(c.cache)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// LoadCustomRules appends the rules of a YAML rule set
func (c *Classifier) LoadCustomRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read custom rules file: %w", err)
	}

	var ruleSet RuleSet
	if err := yaml.Unmarshal(data, &ruleSet); err != nil {
		return fmt.Errorf("failed to parse custom rules: %w", err)
	}

	for _, rule := range ruleSet.Rules {
		if !rule.ReportType.IsValid() {
			return fmt.Errorf("rule %s: unknown report type %q", rule.Name, rule.ReportType)
		}
	}

	return c.addRules(ruleSet.Rules)
}

// Rules returns the names of the loaded rules in evaluation order
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// GetVersion returns the classifier version
func (c *Classifier) GetVersion() string {
	return classifierVersion
}

// GetConfig returns the current configuration
func (c *Classifier) GetConfig() Config {
	return c.config
}
