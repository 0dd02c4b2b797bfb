package enums

import "fmt"

// CampaignStatus is the lifecycle of a gifting campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

var validCampaignStatuses = []CampaignStatus{
	CampaignStatusDraft,
	CampaignStatusActive,
	CampaignStatusCompleted,
	CampaignStatusCancelled,
}

func (s CampaignStatus) String() string {
	return string(s)
}

func (s CampaignStatus) IsValid() bool {
	for _, candidate := range validCampaignStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports statuses that accept no further changes.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusCancelled
}

func ParseCampaignStatus(value string) (CampaignStatus, error) {
	for _, candidate := range validCampaignStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid campaign status %q", value)
}
