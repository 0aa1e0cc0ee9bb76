package enums

import "fmt"

// ReleaseReason records what triggered a settlement release attempt.
type ReleaseReason string

const (
	ReleaseReasonDeliveryConfirmed ReleaseReason = "delivery_confirmed"
	ReleaseReasonAutoRelease       ReleaseReason = "auto_release"
	ReleaseReasonAdminForced       ReleaseReason = "admin_forced"
)

var validReleaseReasons = []ReleaseReason{
	ReleaseReasonDeliveryConfirmed,
	ReleaseReasonAutoRelease,
	ReleaseReasonAdminForced,
}

// String implements fmt.Stringer.
func (r ReleaseReason) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r ReleaseReason) IsValid() bool {
	for _, candidate := range validReleaseReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReleaseReason converts raw input into a ReleaseReason.
func ParseReleaseReason(value string) (ReleaseReason, error) {
	for _, candidate := range validReleaseReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid release reason %q", value)
}
