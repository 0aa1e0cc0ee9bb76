package enums

import "fmt"

// BookingStatus tracks the transport lifecycle of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusDeposited BookingStatus = "deposited"
	BookingStatusInTransit BookingStatus = "in_transit"
	BookingStatusDelivered BookingStatus = "delivered"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusDisputed  BookingStatus = "disputed"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusAccepted,
	BookingStatusPaid,
	BookingStatusDeposited,
	BookingStatusInTransit,
	BookingStatusDelivered,
	BookingStatusCancelled,
	BookingStatusDisputed,
}

// String implements fmt.Stringer.
func (b BookingStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingStatus.
func (b BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsPostPayment reports whether escrowed funds exist for the status.
func (b BookingStatus) IsPostPayment() bool {
	switch b {
	case BookingStatusPaid, BookingStatusDeposited, BookingStatusInTransit, BookingStatusDelivered:
		return true
	}
	return false
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
