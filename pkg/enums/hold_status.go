package enums

import "fmt"

// HoldStatus mirrors the provider-reported state of an escrow hold.
type HoldStatus string

const (
	HoldStatusPending   HoldStatus = "pending"
	HoldStatusSucceeded HoldStatus = "succeeded"
	HoldStatusFailed    HoldStatus = "failed"
)

var validHoldStatuses = []HoldStatus{
	HoldStatusPending,
	HoldStatusSucceeded,
	HoldStatusFailed,
}

// String implements fmt.Stringer.
func (h HoldStatus) String() string {
	return string(h)
}

// IsValid reports whether the value is known.
func (h HoldStatus) IsValid() bool {
	for _, candidate := range validHoldStatuses {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHoldStatus converts raw input into a HoldStatus.
func ParseHoldStatus(value string) (HoldStatus, error) {
	for _, candidate := range validHoldStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hold status %q", value)
}
