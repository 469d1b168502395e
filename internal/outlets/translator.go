package outlets

import (
	"regexp"
	"strings"
)

type Category string

const (
	CategoryLocation Category = "location"
	CategoryHours    Category = "hours"
	CategoryServices Category = "services"
	CategoryContact  Category = "contact"
	CategoryGeneral  Category = "general"
)

// Query is a read-only statement built from one of the fixed templates.
// User-derived values only ever travel in Args.
type Query struct {
	Category Category
	SQL      string
	Args     []any
	Location string
}

// Keywords are matched as whole words, checked in this order.
var categoryKeywords = []struct {
	category Category
	re       *regexp.Regexp
}{
	{CategoryLocation, regexp.MustCompile(`\b(?:outlets?|stores?|branch(?:es)?|locations?|where|in|at)\b`)},
	{CategoryHours, regexp.MustCompile(`\b(?:hours?|time|open\w*|clos\w*|when)\b`)},
	{CategoryServices, regexp.MustCompile(`\b(?:services?|wifi|delivery|drive\w*|takeaway|dine\w*)\b`)},
	{CategoryContact, regexp.MustCompile(`\b(?:contact|phone|number|call)\b`)},
}

// gazetteer is checked in order; canonical is the value bound into the query.
var gazetteer = []struct {
	re        *regexp.Regexp
	canonical string
}{
	{regexp.MustCompile(`\bss\s?2\b`), "SS2"},
	{regexp.MustCompile(`\bbangsar\b`), "bangsar"},
	{regexp.MustCompile(`\bklcc\b`), "klcc"},
	{regexp.MustCompile(`\bmont\s+kiara\b`), "mont kiara"},
	{regexp.MustCompile(`\bsunway\b`), "sunway"},
	{regexp.MustCompile(`\bdamansara\b`), "damansara"},
	{regexp.MustCompile(`\bpetaling\s+jaya\b`), "petaling jaya"},
	{regexp.MustCompile(`\bkuala\s+lumpur\b`), "kuala lumpur"},
	{regexp.MustCompile(`\bselangor\b`), "selangor"},
	{regexp.MustCompile(`\bpj\b`), "petaling jaya"},
	{regexp.MustCompile(`\bkl\b`), "kuala lumpur"},
}

var (
	afterPrepositionRe = regexp.MustCompile(`\b(?:in|at)\s+([a-z\s]+?)(?:\s|$|[?.,])`)
	serviceTerms       = []string{"wifi", "delivery", "drive", "takeaway", "dine"}
	stopWords          = map[string]struct{}{
		"is": {}, "there": {}, "a": {}, "an": {}, "the": {}, "in": {}, "at": {}, "on": {},
		"what": {}, "where": {}, "how": {}, "can": {}, "do": {}, "any": {}, "are": {},
		"you": {}, "your": {}, "for": {}, "and": {}, "with": {},
	}
	tokenRe = regexp.MustCompile(`[a-z0-9]+`)
)

const (
	fullColumns     = "id, name, location, address, opening_hours, services, contact"
	hoursColumns    = "id, name, location, address, opening_hours"
	servicesColumns = "id, name, location, address, opening_hours, services"
	contactColumns  = "id, name, location, address, opening_hours, contact"

	matchLocation = `(LOWER(location) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')`
	matchServices = `LOWER(services) LIKE ? ESCAPE '\'`
	orderByName   = " ORDER BY name"
)

// Classify returns the category of a lowercased query.
func Classify(text string) Category {
	for _, ck := range categoryKeywords {
		if ck.re.MatchString(text) {
			return ck.category
		}
	}
	return CategoryGeneral
}

// ExtractLocation returns the normalized location token, or "".
func ExtractLocation(text string) string {
	for _, g := range gazetteer {
		if g.re.MatchString(text) {
			return g.canonical
		}
	}
	if m := afterPrepositionRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Translate compiles a natural-language question into one of the fixed
// query templates and runs it through the safety gate.
func Translate(text string) (Query, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	category := Classify(lower)
	location := ExtractLocation(lower)

	var q Query
	switch category {
	case CategoryLocation:
		q = locationFiltered(fullColumns, location)
	case CategoryHours:
		q = locationFiltered(hoursColumns, location)
	case CategoryContact:
		q = locationFiltered(contactColumns, location)
	case CategoryServices:
		q = servicesQuery(lower, location)
	default:
		q = generalQuery(lower, location)
	}
	q.Category = category
	q.Location = location

	if err := CheckSafe(q); err != nil {
		return Query{}, err
	}
	return q, nil
}

func locationFiltered(columns, location string) Query {
	sql := "SELECT " + columns + " FROM outlets"
	if location == "" {
		return Query{SQL: sql + orderByName}
	}
	pattern := likePattern(location)
	return Query{
		SQL:  sql + " WHERE " + matchLocation + orderByName,
		Args: []any{pattern, pattern, pattern},
	}
}

func servicesQuery(lower, location string) Query {
	var (
		conds []string
		args  []any
	)
	if location != "" {
		pattern := likePattern(location)
		conds = append(conds, `(LOWER(location) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	for _, term := range serviceTerms {
		if strings.Contains(lower, term) {
			conds = append(conds, matchServices)
			args = append(args, likePattern(term))
			break
		}
	}

	sql := "SELECT " + servicesColumns + " FROM outlets"
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	return Query{SQL: sql + orderByName, Args: args}
}

func generalQuery(lower, location string) Query {
	if location != "" {
		return locationFiltered(fullColumns, location)
	}
	var words []string
	for _, w := range tokenRe.FindAllString(lower, -1) {
		if _, stop := stopWords[w]; stop || len(w) <= 2 {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return Query{SQL: "SELECT " + fullColumns + " FROM outlets" + orderByName + " LIMIT 5"}
	}
	pattern := likePattern(strings.Join(words, " "))
	return Query{
		SQL:  "SELECT " + fullColumns + " FROM outlets WHERE " + matchLocation + orderByName,
		Args: []any{pattern, pattern, pattern},
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern lowercases v, escapes LIKE wildcards and wraps it for a
// substring match.
func likePattern(v string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(v)) + "%"
}
