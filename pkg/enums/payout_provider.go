package enums

import "fmt"

// PayoutProvider identifies the rail that executed (or will execute) a transfer.
type PayoutProvider string

const (
	PayoutProviderStripe  PayoutProvider = "stripe"
	PayoutProviderFedapay PayoutProvider = "fedapay"
)

var validPayoutProviders = []PayoutProvider{
	PayoutProviderStripe,
	PayoutProviderFedapay,
}

// String implements fmt.Stringer.
func (p PayoutProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PayoutProvider) IsValid() bool {
	for _, candidate := range validPayoutProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayoutProvider converts raw input into a PayoutProvider.
func ParsePayoutProvider(value string) (PayoutProvider, error) {
	for _, candidate := range validPayoutProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout provider %q", value)
}
