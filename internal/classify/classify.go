// Package classify produces the authoritative "clean" transaction list: card
// payments received are filtered out and duplicate extractions collapsed.
// Every total, projection and period grouping must start from Clean output.
package classify

import (
	"strings"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// Keywords are the externalized classification tables. They are uppercase
// substrings matched against transaction details; per-deployment overrides
// come from the config file.
type Keywords struct {
	// Payment marks a line as a card payment received (excluded from spend).
	Payment []string `yaml:"payment"`
	// PaymentExceptions are purchases that merely look like payments
	// (e.g. paying a utility bill through the card).
	PaymentExceptions []string `yaml:"payment_exceptions"`
	// Tax marks tax and fee line items for the display rollup.
	Tax []string `yaml:"tax"`
}

// DefaultKeywords returns the tables tuned for Argentine card statements.
func DefaultKeywords() Keywords {
	return Keywords{
		Payment: []string{
			"SU PAGO", "PAGO EN PESOS", "PAGO DE TARJETA", "PAGO DE T",
			"PAGO USD", "PAGO $", "PAGO CAJERO",
		},
		PaymentExceptions: []string{
			"PAGO MIS CUENTAS", "PAGO DE SERVICIOS", "PAGO SERVICIOS",
			"PAGO AFIP", "PAGO BANCO",
		},
		Tax: []string{
			"IVA", "IMPUESTO", "SELLOS", "PERCEPCION", "DB.RG",
			"MANTENIMIENTO", "COMISION", "ARCA", "IIBB", "TASA", "INT.",
		},
	}
}

func containsAny(detail string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(detail, k) {
			return true
		}
	}
	return false
}

// IsPayment reports whether the transaction is really a payment received on
// the card rather than spend. Reversals of payments stay in the list.
func (kw Keywords) IsPayment(t domain.Transaction) bool {
	detail := strings.ToUpper(t.Detail)
	if strings.Contains(detail, "REVERSION") {
		return false
	}
	if containsAny(detail, kw.PaymentExceptions) {
		return false
	}
	return t.Type == domain.TypePayment || containsAny(detail, kw.Payment)
}

// IsTax reports whether the transaction belongs in the tax/fee rollup.
func (kw Keywords) IsTax(t domain.Transaction) bool {
	return t.Type == domain.TypeTaxFee || containsAny(strings.ToUpper(t.Detail), kw.Tax)
}

// Clean filters out detected payments and deduplicates the remainder on
// (date, detail, amount, bank). The first occurrence wins and insertion
// order is preserved. Clean is idempotent.
func Clean(txs []domain.Transaction, kw Keywords) []domain.Transaction {
	seen := make(map[string]struct{}, len(txs))
	out := make([]domain.Transaction, 0, len(txs))
	for _, t := range txs {
		if kw.IsPayment(t) {
			continue
		}
		key := t.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
