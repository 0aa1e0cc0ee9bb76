package enums

import "fmt"

// KYCStatus is the identity-verification state owned by the identity
// subsystem and consumed here as a capture precondition.
type KYCStatus string

const (
	KYCStatusApproved   KYCStatus = "approved"
	KYCStatusPending    KYCStatus = "pending"
	KYCStatusRejected   KYCStatus = "rejected"
	KYCStatusIncomplete KYCStatus = "incomplete"
)

var validKYCStatuses = []KYCStatus{
	KYCStatusApproved,
	KYCStatusPending,
	KYCStatusRejected,
	KYCStatusIncomplete,
}

// String implements fmt.Stringer.
func (k KYCStatus) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k KYCStatus) IsValid() bool {
	for _, candidate := range validKYCStatuses {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseKYCStatus converts raw input into a KYCStatus.
func ParseKYCStatus(value string) (KYCStatus, error) {
	for _, candidate := range validKYCStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid kyc status %q", value)
}
