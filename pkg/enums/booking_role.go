package enums

import "fmt"

// BookingRole is the side of a booking a user acts on when aggregating
// financials: the traveler carries, the requester pays.
type BookingRole string

const (
	BookingRoleTraveler  BookingRole = "traveler"
	BookingRoleRequester BookingRole = "requester"
)

var validBookingRoles = []BookingRole{
	BookingRoleTraveler,
	BookingRoleRequester,
}

// String implements fmt.Stringer.
func (b BookingRole) String() string {
	return string(b)
}

// IsValid reports whether the value is known.
func (b BookingRole) IsValid() bool {
	for _, candidate := range validBookingRoles {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBookingRole converts raw input into a BookingRole.
func ParseBookingRole(value string) (BookingRole, error) {
	for _, candidate := range validBookingRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking role %q", value)
}
