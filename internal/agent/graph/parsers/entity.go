package parsers

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
)

// slotRule extracts at most one slot from a lowercased utterance.
type slotRule struct {
	slot    string
	extract func(lower string) (any, bool)
}

var (
	locationRe     = regexp.MustCompile(`\b(?:in|at)\s+([^?]+)`)
	ss2Re          = regexp.MustCompile(`\bss\s*2\b`)
	hoursVocabRe   = regexp.MustCompile(`open|hour|clos(?:e|ing)`)
	directExprRe   = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:\*\*|[-+*/%^x×÷])\s*\(*\s*\d`)
	numberRe       = regexp.MustCompile(`\d+(?:\.\d+)?`)
	operatorTokRe  = regexp.MustCompile(`[-+*/%]|\bplus\b|\bminus\b|\btimes\b|\bdivide`)
	productVocab   = []string{"drinkware", "coffee", "drink", "beverage", "cup", "mug", "tumbler", "bottle"}
	wordOperators  = map[string]string{"plus": "+", "minus": "-", "times": "*", "divide": "/"}
	expressionRune = "0123456789.+-*/%^()x×÷ "
)

var slotRules = map[model.Intent][]slotRule{
	model.IntentOutletQuery: {
		{slot: model.SlotLocation, extract: extractLocation},
		{slot: model.SlotSpecificOutlet, extract: func(lower string) (any, bool) {
			if ss2Re.MatchString(lower) {
				return "SS2", true
			}
			return nil, false
		}},
		{slot: model.SlotQueryType, extract: func(lower string) (any, bool) {
			if hoursVocabRe.MatchString(lower) {
				return model.QueryTypeOpeningHours, true
			}
			return nil, false
		}},
	},
	model.IntentProductQuery: {
		{slot: model.SlotProductType, extract: func(lower string) (any, bool) {
			for _, term := range productVocab {
				if strings.Contains(lower, term) {
					return term, true
				}
			}
			return nil, false
		}},
	},
	model.IntentCalculation: {
		{slot: model.SlotExpression, extract: directExpression},
		{slot: model.SlotExpression, extract: assembledExpression},
	},
}

// ExtractEntities applies the rules for intent in order. The first rule to
// produce a slot wins; later rules for the same slot are skipped.
func ExtractEntities(utterance string, intent model.Intent) model.Entities {
	lower := strings.ToLower(utterance)
	out := model.Entities{}
	for _, rule := range slotRules[intent] {
		if _, done := out[rule.slot]; done {
			continue
		}
		if v, ok := rule.extract(lower); ok {
			out[rule.slot] = v
		}
	}
	return out
}

func extractLocation(lower string) (any, bool) {
	m := locationRe.FindStringSubmatch(lower)
	if m == nil {
		return nil, false
	}
	loc := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), ".,!;:"))
	if loc == "" {
		return nil, false
	}
	return loc, true
}

// directExpression takes the longest run of expression characters around the
// first "number operator number" span.
func directExpression(lower string) (any, bool) {
	loc := directExprRe.FindStringIndex(lower)
	if loc == nil {
		return nil, false
	}
	start, end := loc[0], loc[1]
	for start > 0 {
		c := lower[start-1]
		if c == '(' || c == ' ' || (isSign(c) && (start == 1 || lower[start-2] == ' ' || lower[start-2] == '(')) {
			start--
			continue
		}
		break
	}
	for end < len(lower) {
		r, size := utf8.DecodeRuneInString(lower[end:])
		if !strings.ContainsRune(expressionRune, r) {
			break
		}
		end += size
	}
	expr := strings.TrimSpace(lower[start:end])
	if expr == "" {
		return nil, false
	}
	return expr, true
}

// isSign reports a leading unary sign; it only counts at the start of the
// text or after a space or "(".
func isSign(c byte) bool {
	return c == '-' || c == '+'
}

// assembledExpression builds "a op b" from the first two numbers and the
// first operator token.
func assembledExpression(lower string) (any, bool) {
	numbers := numberRe.FindAllString(lower, 2)
	if len(numbers) < 2 {
		return nil, false
	}
	op := operatorTokRe.FindString(lower)
	if op == "" {
		return nil, false
	}
	if sym, ok := wordOperators[op]; ok {
		op = sym
	}
	return numbers[0] + " " + op + " " + numbers[1], true
}
