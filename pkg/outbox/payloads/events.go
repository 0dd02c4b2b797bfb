package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
)

// GiftLinkIssuedEvent is emitted per recipient when a campaign launches.
type GiftLinkIssuedEvent struct {
	RecipientID   uuid.UUID  `json:"recipient_id"`
	CampaignID    uuid.UUID  `json:"campaign_id"`
	CompanyID     uuid.UUID  `json:"company_id"`
	CampaignName  string     `json:"campaign_name"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	GiftURL       string     `json:"gift_url"`
	LinkExpiresAt *time.Time `json:"link_expires_at,omitempty"`
}

// GiftLinkExpiringEvent reminds an unredeemed recipient before the link lapses.
type GiftLinkExpiringEvent struct {
	RecipientID   uuid.UUID `json:"recipient_id"`
	CampaignID    uuid.UUID `json:"campaign_id"`
	CampaignName  string    `json:"campaign_name"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	GiftURL       string    `json:"gift_url"`
	LinkExpiresAt time.Time `json:"link_expires_at"`
}

// GiftRedeemedEvent confirms a redemption to the recipient.
type GiftRedeemedEvent struct {
	RecipientID  uuid.UUID `json:"recipient_id"`
	CampaignID   uuid.UUID `json:"campaign_id"`
	OrderID      uuid.UUID `json:"order_id"`
	CompanyID    uuid.UUID `json:"company_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	ProductName  string    `json:"product_name"`
	CampaignName string    `json:"campaign_name"`
}

// UserInvitedEvent carries the temporary credentials for a new user.
type UserInvitedEvent struct {
	UserID       uuid.UUID  `json:"user_id"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	TempPassword string     `json:"temp_password"`
	InvitedBy    uuid.UUID  `json:"invited_by"`
}

// OrderStatusChangedEvent follows an order through its progression.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	CompanyID uuid.UUID         `json:"company_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedBy uuid.UUID         `json:"changed_by"`
}

// InvoiceGeneratedEvent announces a new invoice to the company billing contact.
type InvoiceGeneratedEvent struct {
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	InvoiceNumber string            `json:"invoice_number"`
	CompanyID     uuid.UUID         `json:"company_id"`
	Kind          enums.InvoiceKind `json:"kind"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Currency      string            `json:"currency"`
	DueDate       time.Time         `json:"due_date"`
}

// WalletCreditedEvent records a ledger entry against a wallet.
type WalletCreditedEvent struct {
	TransactionID uuid.UUID            `json:"transaction_id"`
	WalletID      uuid.UUID            `json:"wallet_id"`
	UserID        uuid.UUID            `json:"user_id"`
	Amount        decimal.Decimal      `json:"amount"`
	Currency      string               `json:"currency"`
	Method        enums.PaymentMethod  `json:"method"`
	Status        enums.WalletTxStatus `json:"status"`
}

// VendorAssignedEvent tells fulfilment that an order has a vendor.
type VendorAssignedEvent struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	OrderID      uuid.UUID `json:"order_id"`
	VendorID     uuid.UUID `json:"vendor_id"`
	VendorName   string    `json:"vendor_name"`
	VendorEmail  *string   `json:"vendor_email,omitempty"`
}
