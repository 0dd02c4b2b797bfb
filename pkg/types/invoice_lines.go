package types

import (
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is an order item frozen at invoice time.
type InvoiceLine struct {
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceLines is the JSONB snapshot of an invoice's items.
type InvoiceLines []InvoiceLine

func (l InvoiceLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]InvoiceLine(l))
}

func (l *InvoiceLines) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var lines []InvoiceLine
	if err := jsonScan("invoice lines", value, &lines); err != nil {
		return err
	}
	*l = lines
	return nil
}
