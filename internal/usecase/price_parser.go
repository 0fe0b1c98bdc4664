package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// Package-level compiled regex patterns for price and size parsing
var (
	// Matches a plain decimal amount after the currency symbol is stripped.
	// No internal whitespace is tolerated: "$ 7.50" is malformed, not $7.50.
	amountRegex = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

	// Matches a dollar amount anywhere in free text, e.g. "SAVE $5.00"
	dollarAmountRegex = regexp.MustCompile(`\$(\d+(?:\.\d+)?)`)

	// Matches a package size token like "500g", "2L", "1.25 litre", "6 pack"
	packageSizeRegex = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(kg|g|mg|l|ml|litres?|liters?|pack|pk|each|ea|dozen)\b`)
)

// ParseMoney parses a currency-formatted string into a non-negative amount.
// A leading "$" and surrounding whitespace are stripped. Malformed, empty,
// or negative input yields (0, false) rather than an error: this is the
// tolerant default used while constructing records, and rejecting bad
// prices is the validator's job.
func ParseMoney(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "$")
	if !amountRegex.MatchString(s) {
		return 0, false
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount, true
}

// ParseSavings extracts the first dollar amount from free-form savings text
// such as "SAVE $5.00". Returns 0 when no amount is present.
func ParseSavings(text string) float64 {
	m := dollarAmountRegex.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return amount
}

// ParsePackageSize extracts a numeric magnitude and unit token from text
// like "Coca-Cola 2L" or "Chips 175g". The unit is lowercased; "litre"
// spellings normalize to "l". Returns ok=false when no size is found.
func ParsePackageSize(text string) (float64, string, bool) {
	m := packageSizeRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	unit := strings.ToLower(m[2])
	switch unit {
	case "litre", "litres", "liter", "liters":
		unit = "l"
	case "pk":
		unit = "pack"
	case "ea":
		unit = "each"
	}
	return value, unit, true
}
