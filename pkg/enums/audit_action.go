package enums

import "fmt"

// AuditAction names the privileged operations recorded in the audit log.
type AuditAction string

const (
	AuditActionForceRefund    AuditAction = "force_refund"
	AuditActionMarkDisputed   AuditAction = "mark_disputed"
	AuditActionResolveDispute AuditAction = "resolve_dispute"
	AuditActionManualRelease  AuditAction = "manual_release"
)

var validAuditActions = []AuditAction{
	AuditActionForceRefund,
	AuditActionMarkDisputed,
	AuditActionResolveDispute,
	AuditActionManualRelease,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
