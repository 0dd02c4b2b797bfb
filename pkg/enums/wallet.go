package enums

import "fmt"

// WalletTxType distinguishes balance increases from decreases.
type WalletTxType string

const (
	WalletTxCredit WalletTxType = "credit"
	WalletTxDebit  WalletTxType = "debit"
)

// WalletTxStatus records whether a ledger row has moved the balance.
type WalletTxStatus string

const (
	WalletTxPending   WalletTxStatus = "pending"
	WalletTxCompleted WalletTxStatus = "completed"
	WalletTxFailed    WalletTxStatus = "failed"
)

func ParseWalletTxStatus(value string) (WalletTxStatus, error) {
	switch s := WalletTxStatus(value); s {
	case WalletTxPending, WalletTxCompleted, WalletTxFailed:
		return s, nil
	}
	return "", fmt.Errorf("invalid wallet transaction status %q", value)
}

// PaymentMethod identifies how a wallet top-up was funded.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodNetBanking   PaymentMethod = "net_banking"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodUPI,
	PaymentMethodNetBanking,
	PaymentMethodBankTransfer,
	PaymentMethodCheque,
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// SettlesInstantly reports methods whose funds are credited on receipt.
// Everything else is recorded as pending until confirmed.
func (m PaymentMethod) SettlesInstantly() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking:
		return true
	default:
		return false
	}
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
