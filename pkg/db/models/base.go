package models

import "github.com/google/uuid"

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model; used by schema checks and test databases.
func All() []any {
	return []any{
		&Company{},
		&User{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Campaign{},
		&CampaignProduct{},
		&CampaignRecipient{},
		&Vendor{},
		&OrderVendorAssignment{},
		&Invoice{},
		&Wallet{},
		&WalletTransaction{},
		&AuditLogEntry{},
		&OutboxEvent{},
	}
}
