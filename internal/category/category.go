// Package category assigns spending categories to transaction descriptions
// by merchant keyword.
package category

import (
	"regexp"
	"strings"
)

// Other is returned when no rule matches.
const Other = "Other"

type rule struct {
	name    string
	pattern *regexp.Regexp
}

// Rules are checked in order; the first match wins. "amazon" appears under
// both Shopping and Entertainment, so it always lands in Shopping.
var rules = []rule{
	{"Groceries", regexp.MustCompile(`(?i)(naivas|quickmart|carrefour|supermarket)`)},
	{"Transport", regexp.MustCompile(`(?i)(uber|bolt|sacco|fuel|shell|total|rubis)`)},
	{"Utilities", regexp.MustCompile(`(?i)(kplc|water|internet|wifi|safaricom|airtel|faiba)`)},
	{"Dining", regexp.MustCompile(`(?i)(restaurant|cafe|coffee|kfc|java|pizza|burger)`)},
	{"Rent", regexp.MustCompile(`(?i)(rent|landlord|house rent|nyumba)`)},
	{"Shopping", regexp.MustCompile(`(?i)(jumia|amazon|mall|clothes|shoe|fashion|shop)`)},
	{"Health", regexp.MustCompile(`(?i)(pharmacy|hospital|clinic|medical|doctor)`)},
	{"Entertainment", regexp.MustCompile(`(?i)(amazon|showmax|youtubemusic|movie|cinema|game)`)},
}

// Categorize returns the category of the first matching rule, or Other.
func Categorize(description string) string {
	description = strings.ToLower(strings.TrimSpace(description))
	for _, r := range rules {
		if r.pattern.MatchString(description) {
			return r.name
		}
	}
	return Other
}

// Names lists every category in rule order, followed by Other.
func Names() []string {
	names := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		names = append(names, r.name)
	}
	return append(names, Other)
}
