package enums

import "fmt"

// PayoutMethod is the traveler's chosen payout destination kind.
type PayoutMethod string

const (
	PayoutMethodBank         PayoutMethod = "bank"
	PayoutMethodMobileWallet PayoutMethod = "mobile_wallet"
)

var validPayoutMethods = []PayoutMethod{
	PayoutMethodBank,
	PayoutMethodMobileWallet,
}

// String implements fmt.Stringer.
func (p PayoutMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PayoutMethod) IsValid() bool {
	for _, candidate := range validPayoutMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayoutMethod converts raw input into a PayoutMethod.
func ParsePayoutMethod(value string) (PayoutMethod, error) {
	for _, candidate := range validPayoutMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout method %q", value)
}
