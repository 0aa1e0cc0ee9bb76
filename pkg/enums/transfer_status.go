package enums

import "fmt"

// TransferStatus is the normalized state of a payout transfer, shared by
// both rails after provider vocabulary normalization.
type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"
	TransferStatusPaid     TransferStatus = "paid"
	TransferStatusFailed   TransferStatus = "failed"
	TransferStatusReversed TransferStatus = "reversed"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusPaid,
	TransferStatusFailed,
	TransferStatusReversed,
}

// String implements fmt.Stringer.
func (t TransferStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsActive reports whether the status holds or held funds for the booking.
// A booking may carry at most one active transfer.
func (t TransferStatus) IsActive() bool {
	return t == TransferStatusPending || t == TransferStatusPaid
}

// ParseTransferStatus converts raw input into a TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}
