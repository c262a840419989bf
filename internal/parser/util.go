package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyPattern matches amounts such as 2,500.00, 2500.00 or a bare 2500.
// Alternatives are tried in order, so "1,500" without decimals yields the
// two tokens "1" and "500".
var moneyPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d{2})|\d+\.\d{2}|\d+`)

// findAmounts returns every money-like token in text, in order.
func findAmounts(text string) []string {
	return moneyPattern.FindAllString(text, -1)
}

// parseAmount converts a token like "1,234.56" to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// collapseSpaces folds every whitespace run into a single space and trims
// both ends.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitLines splits page text into trimmed, non-empty lines.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
