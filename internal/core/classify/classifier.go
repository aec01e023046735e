package classify

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

type rule struct {
	docType    domain.DocumentType
	indicators []*regexp.Regexp
	prompt     string
}

// Classifier scores extracted text against per-type indicator sets. Rules are
// compiled once at construction; Classify and ExtractionPrompt are safe for
// concurrent use.
type Classifier struct {
	rules         []rule
	defaultType   domain.DocumentType
	defaultPrompt string
}

// RuleSet is the YAML override format for indicator sets and prompts.
type RuleSet struct {
	Default string `yaml:"default"`
	Types   []struct {
		Name       string   `yaml:"name"`
		Indicators []string `yaml:"indicators"`
		Prompt     string   `yaml:"prompt"`
	} `yaml:"types"`
}

// New builds a classifier with the built-in invoice/receipt rules and the
// document fallback.
func New() *Classifier {
	c, err := fromRuleSet(builtinRules())
	if err != nil {
		// Built-in patterns are compile-time constants.
		panic(err)
	}
	return c
}

// NewFromFile loads a YAML rule set; unknown or invalid files fail loudly so a
// bad deployment does not silently misclassify.
func NewFromFile(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	return fromRuleSet(rs)
}

func fromRuleSet(rs RuleSet) (*Classifier, error) {
	if len(rs.Types) == 0 {
		return nil, fmt.Errorf("rule set declares no types")
	}

	c := &Classifier{defaultType: domain.DocumentType(rs.Default)}
	for _, t := range rs.Types {
		r := rule{docType: domain.DocumentType(t.Name), prompt: t.Prompt}
		for _, pattern := range t.Indicators {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("compile indicator %q for type %q: %w", pattern, t.Name, err)
			}
			r.indicators = append(r.indicators, re)
		}
		c.rules = append(c.rules, r)
		if r.docType == c.defaultType {
			c.defaultPrompt = r.prompt
		}
	}
	if c.defaultPrompt == "" {
		return nil, fmt.Errorf("default type %q is not a declared candidate", rs.Default)
	}
	return c, nil
}

// Classify picks the type with the strictly highest indicator count over the
// lowercased text. Each indicator contributes at most one point. Ties are
// broken by declaration order (first declared wins), and a score of zero
// everywhere yields the default type: the default is seeded as the running
// best with score zero, so a candidate must strictly beat it to replace it.
func (c *Classifier) Classify(text string) domain.DocumentType {
	text = strings.ToLower(text)

	best := c.defaultType
	bestScore := 0
	for _, r := range c.rules {
		score := 0
		for _, re := range r.indicators {
			if re.MatchString(text) {
				score++
			}
		}
		if score > bestScore {
			best = r.docType
			bestScore = score
		}
	}
	return best
}

// ExtractionPrompt is a total mapping: unknown types fall back to the default
// type's prompt.
func (c *Classifier) ExtractionPrompt(docType domain.DocumentType) string {
	for _, r := range c.rules {
		if r.docType == docType {
			return r.prompt
		}
	}
	return c.defaultPrompt
}

// DefaultType reports the fallback type.
func (c *Classifier) DefaultType() domain.DocumentType {
	return c.defaultType
}

func builtinRules() RuleSet {
	return RuleSet{
		Default: string(domain.TypeDocument),
		Types: []struct {
			Name       string   `yaml:"name"`
			Indicators []string `yaml:"indicators"`
			Prompt     string   `yaml:"prompt"`
		}{
			{
				Name: string(domain.TypeInvoice),
				Indicators: []string{
					`invoice\s*(number|no\.?|#)`,
					`bill\s*to`,
					`subtotal`,
					`grand\s*total`,
					`due\s*date`,
					`payment\s*terms`,
					`purchase\s*order`,
				},
				Prompt: "Extract: vendor, invoice number, date, amounts, items as JSON.",
			},
			{
				Name: string(domain.TypeReceipt),
				Indicators: []string{
					`receipt`,
					`paid\s*by`,
					`cashier`,
					`change\s*due`,
					`thank\s*you\s*for\s*(shopping|your\s*purchase)`,
					`card\s*ending`,
				},
				Prompt: "Extract: merchant, date, total, payment method, items as JSON.",
			},
			{
				Name:       string(domain.TypeDocument),
				Indicators: nil,
				Prompt:     "Extract all key information from this document as JSON.",
			},
		},
	}
}
