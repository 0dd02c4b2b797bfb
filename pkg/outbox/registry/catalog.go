package registry

import (
	"encoding/json"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
)

// Channel names the logical stream an event travels on. Each channel maps to
// one configured Pub/Sub topic.
type Channel string

const (
	// ChannelNotification carries events that end in an email.
	ChannelNotification Channel = "notification"
	// ChannelGifting carries ledger and fulfilment events.
	ChannelGifting Channel = "gifting"
)

type decoderFunc func(json.RawMessage) (any, error)

type catalogEntry struct {
	eventType     enums.OutboxEventType
	aggregateType enums.OutboxAggregateType
	channel       Channel
	decode        decoderFunc
}

func entry[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, channel Channel) catalogEntry {
	return catalogEntry{eventType: eventType, aggregateType: aggregate, channel: channel, decode: decodeAs[T]}
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// catalog lists every event the system emits with its v1 payload.
var catalog = []catalogEntry{
	entry[payloads.GiftLinkIssuedEvent](enums.EventGiftLinkIssued, enums.AggregateCampaignRecipient, ChannelNotification),
	entry[payloads.GiftLinkExpiringEvent](enums.EventGiftLinkExpiring, enums.AggregateCampaignRecipient, ChannelNotification),
	entry[payloads.GiftRedeemedEvent](enums.EventGiftRedeemed, enums.AggregateCampaignRecipient, ChannelNotification),
	entry[payloads.UserInvitedEvent](enums.EventUserInvited, enums.AggregateUser, ChannelNotification),
	entry[payloads.InvoiceGeneratedEvent](enums.EventInvoiceGenerated, enums.AggregateInvoice, ChannelNotification),
	entry[payloads.VendorAssignedEvent](enums.EventVendorAssigned, enums.AggregateVendorAssignment, ChannelNotification),
	entry[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder, ChannelGifting),
	entry[payloads.WalletCreditedEvent](enums.EventWalletCredited, enums.AggregateWalletTransaction, ChannelGifting),
}
