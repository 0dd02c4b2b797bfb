package metrics

import "github.com/prometheus/client_golang/prometheus"

// Redemption outcomes.
const (
	RedeemOK       = "ok"
	RedeemRejected = "rejected"
	RedeemFailed   = "failed"
)

// GiftingMetrics tracks the money and gift flows.
type GiftingMetrics struct {
	redemptions *prometheus.CounterVec
	credits     *prometheus.CounterVec
	invoices    *prometheus.CounterVec
}

func NewGiftingMetrics(reg prometheus.Registerer) *GiftingMetrics {
	if reg == nil {
		return &GiftingMetrics{}
	}
	m := &GiftingMetrics{
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gift_redemptions_total",
			Help:      "Gift link redemption attempts by outcome.",
		}, []string{"outcome"}),
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_credits_total",
			Help:      "Wallet credits by payment method and resulting status.",
		}, []string{"method", "status"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_generated_total",
			Help:      "Invoices generated by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.redemptions, m.credits, m.invoices)
	return m
}

func (m *GiftingMetrics) Redemption(outcome string) {
	if m == nil || m.redemptions == nil {
		return
	}
	m.redemptions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *GiftingMetrics) WalletCredit(method, status string) {
	if m == nil || m.credits == nil {
		return
	}
	m.credits.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}

func (m *GiftingMetrics) InvoiceGenerated(kind string) {
	if m == nil || m.invoices == nil {
		return
	}
	m.invoices.WithLabelValues(normalizeLabel(kind)).Inc()
}
