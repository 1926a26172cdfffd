package inbox

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"expensetracker/models"

	"gopkg.in/yaml.v3"
)

// Rule assigns a title and category to receipts whose merchant or text
// matches Match (a case-insensitive regular expression).
type Rule struct {
	Match    string `yaml:"match"`
	Title    string `yaml:"title"`
	Category string `yaml:"category"`

	re       *regexp.Regexp
	category models.Category
}

// Rules is the inbox rules file.
//
//	default_category: Other
//	rules:
//	  - match: "starbucks|cafe"
//	    title: Coffee
//	    category: Food
type Rules struct {
	DefaultCategory string `yaml:"default_category"`
	Rules           []Rule `yaml:"rules"`

	fallback models.Category
}

// DefaultRules files everything under Other.
func DefaultRules() *Rules {
	return &Rules{fallback: models.CategoryOther}
}

// LoadRules reads and compiles a YAML rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) compile() error {
	r.fallback = models.CategoryOther
	if r.DefaultCategory != "" {
		c, ok := models.ParseCategory(r.DefaultCategory)
		if !ok {
			return fmt.Errorf("default_category: unknown category %q", r.DefaultCategory)
		}
		r.fallback = c
	}
	for i := range r.Rules {
		rule := &r.Rules[i]
		if strings.TrimSpace(rule.Match) == "" {
			return fmt.Errorf("rule %d: match is required", i+1)
		}
		re, err := regexp.Compile("(?i)" + rule.Match)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
		rule.re = re
		rule.category = r.fallback
		if rule.Category != "" {
			c, ok := models.ParseCategory(rule.Category)
			if !ok {
				return fmt.Errorf("rule %d: unknown category %q", i+1, rule.Category)
			}
			rule.category = c
		}
	}
	return nil
}

// Apply returns the title and category for a receipt. The first matching
// rule wins; its empty title keeps the merchant.
func (r *Rules) Apply(merchant, text string) (string, models.Category) {
	for _, rule := range r.Rules {
		if rule.re.MatchString(merchant) || rule.re.MatchString(text) {
			if rule.Title != "" {
				return rule.Title, rule.category
			}
			return merchant, rule.category
		}
	}
	return merchant, r.fallback
}
