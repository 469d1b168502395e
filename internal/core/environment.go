package core

import "strings"

// Environment selects logging defaults for the process.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

var environmentAliases = map[string]Environment{
	"dev":         Development,
	"development": Development,
	"local":       Development,
	"stage":       Staging,
	"staging":     Staging,
	"test":        Testing,
	"testing":     Testing,
	"prod":        Production,
	"production":  Production,
}

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether logs should be plain JSON at info level.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment accepts the usual short names in any case. Anything
// unrecognised runs as Development.
func ParseEnvironment(v string) Environment {
	if env, ok := environmentAliases[strings.ToLower(strings.TrimSpace(v))]; ok {
		return env
	}
	return Development
}
