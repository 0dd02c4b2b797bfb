package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateCampaignRecipient OutboxAggregateType = "campaign_recipient"
	AggregateUser              OutboxAggregateType = "user"
	AggregateOrder             OutboxAggregateType = "order"
	AggregateInvoice           OutboxAggregateType = "invoice"
	AggregateWalletTransaction OutboxAggregateType = "wallet_transaction"
	AggregateVendorAssignment  OutboxAggregateType = "vendor_assignment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCampaignRecipient,
	AggregateUser,
	AggregateOrder,
	AggregateInvoice,
	AggregateWalletTransaction,
	AggregateVendorAssignment,
}

// IsValid reports whether the value matches the canonical aggregate_type values.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event relayed through the outbox.
type OutboxEventType string

const (
	EventGiftLinkIssued     OutboxEventType = "gift_link_issued"
	EventGiftLinkExpiring   OutboxEventType = "gift_link_expiring"
	EventGiftRedeemed       OutboxEventType = "gift_redeemed"
	EventUserInvited        OutboxEventType = "user_invited"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventInvoiceGenerated   OutboxEventType = "invoice_generated"
	EventWalletCredited     OutboxEventType = "wallet_credited"
	EventVendorAssigned     OutboxEventType = "vendor_assigned"
)

var validOutboxEventTypes = []OutboxEventType{
	EventGiftLinkIssued,
	EventGiftLinkExpiring,
	EventGiftRedeemed,
	EventUserInvited,
	EventOrderStatusChanged,
	EventInvoiceGenerated,
	EventWalletCredited,
	EventVendorAssigned,
}

// IsValid reports whether the value matches the canonical event_type values.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
