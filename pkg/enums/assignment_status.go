package enums

import "fmt"

// AssignmentStatus tracks a vendor's handling of an assigned order.
type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusAccepted  AssignmentStatus = "accepted"
	AssignmentStatusShipped   AssignmentStatus = "shipped"
	AssignmentStatusDelivered AssignmentStatus = "delivered"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusPending,
	AssignmentStatusAccepted,
	AssignmentStatusShipped,
	AssignmentStatusDelivered,
	AssignmentStatusCancelled,
}

func (s AssignmentStatus) String() string {
	return string(s)
}

func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// MarksPOSent reports statuses that imply the purchase order reached the vendor.
func (s AssignmentStatus) MarksPOSent() bool {
	return s == AssignmentStatusShipped || s == AssignmentStatusDelivered
}

func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
