package enums

import "fmt"

// InvoiceKind separates per-order invoices from consolidated campaign invoices.
type InvoiceKind string

const (
	InvoiceKindOrder    InvoiceKind = "order"
	InvoiceKindCampaign InvoiceKind = "campaign"
)

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	switch s := InvoiceStatus(value); s {
	case InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusVoid:
		return s, nil
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}

func ParseInvoiceKind(value string) (InvoiceKind, error) {
	switch k := InvoiceKind(value); k {
	case InvoiceKindOrder, InvoiceKindCampaign:
		return k, nil
	}
	return "", fmt.Errorf("invalid invoice kind %q", value)
}
