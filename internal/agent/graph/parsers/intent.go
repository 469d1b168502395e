package parsers

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	"gopkg.in/yaml.v3"
)

//go:embed intents.yaml
var defaultIntents []byte

type intentGroup struct {
	Intent   model.Intent `yaml:"intent"`
	Patterns []string     `yaml:"patterns"`
}

type compiledGroup struct {
	intent   model.Intent
	patterns []*regexp.Regexp
}

// IntentClassifier maps an utterance to the first intent group with a
// matching pattern. It holds no mutable state.
type IntentClassifier struct {
	groups []compiledGroup
}

// NewIntentClassifier compiles a YAML list of {intent, patterns} records.
// Patterns are matched case-insensitively.
func NewIntentClassifier(doc []byte) (*IntentClassifier, error) {
	var raw []intentGroup
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode intent table: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("intent table is empty")
	}

	groups := make([]compiledGroup, 0, len(raw))
	for _, g := range raw {
		if g.Intent == "" {
			return nil, fmt.Errorf("intent group without a name")
		}
		cg := compiledGroup{intent: g.Intent}
		for _, p := range g.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("intent %s: pattern %q: %w", g.Intent, p, err)
			}
			cg.patterns = append(cg.patterns, re)
		}
		groups = append(groups, cg)
	}
	return &IntentClassifier{groups: groups}, nil
}

// DefaultIntentClassifier returns the classifier for the embedded intent table.
func DefaultIntentClassifier() *IntentClassifier {
	c, err := NewIntentClassifier(defaultIntents)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the intent of the first matching group, or IntentUnknown.
func (c *IntentClassifier) Classify(utterance string) model.Intent {
	text := strings.TrimSpace(utterance)
	for _, g := range c.groups {
		for _, re := range g.patterns {
			if re.MatchString(text) {
				return g.intent
			}
		}
	}
	return model.IntentUnknown
}

// Intents lists the intents in evaluation order.
func (c *IntentClassifier) Intents() []model.Intent {
	out := make([]model.Intent, 0, len(c.groups))
	for _, g := range c.groups {
		out = append(out, g.intent)
	}
	return out
}
