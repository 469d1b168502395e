package outlets

import (
	"fmt"
	"regexp"
	"strings"

	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
)

const rejectedMessage = "Query not allowed for security reasons"

var (
	disallowedRe   = regexp.MustCompile(`\b(?:drop|delete|insert|update|alter|create|truncate|exec|execute|union|attach|detach|pragma|replace|vacuum)\b`)
	commentMarkers = []string{"--", "/*", "*/"}
)

// CheckSafe accepts only a single read-only SELECT whose placeholders match
// its bound arguments.
func CheckSafe(q Query) error {
	sql := strings.ToLower(strings.TrimSpace(q.SQL))
	reject := func(reason string) error {
		return errx.Security(rejectedMessage, fmt.Errorf("outlet query rejected: %s", reason))
	}

	if !strings.HasPrefix(sql, "select ") {
		return reject("not a select")
	}
	if strings.Contains(sql, ";") {
		return reject("multiple statements")
	}
	for _, marker := range commentMarkers {
		if strings.Contains(sql, marker) {
			return reject("comment marker")
		}
	}
	if kw := disallowedRe.FindString(sql); kw != "" {
		return reject("keyword " + kw)
	}
	if n := strings.Count(sql, "?"); n != len(q.Args) {
		return reject(fmt.Sprintf("%d placeholders for %d arguments", n, len(q.Args)))
	}
	return nil
}
