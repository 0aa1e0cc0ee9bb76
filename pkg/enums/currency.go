package enums

import (
	"fmt"
	"strings"
)

// Currency represents monetary denominations handled by the settlement engine.
// The bank rail settles in EUR, the mobile-money rail in XOF. No conversion
// is ever performed between the two.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyXOF Currency = "XOF"
)

var validCurrencies = []Currency{
	CurrencyEUR,
	CurrencyXOF,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// Lower returns the lowercase ISO code expected by provider APIs.
func (c Currency) Lower() string {
	return strings.ToLower(string(c))
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == strings.ToUpper(value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
