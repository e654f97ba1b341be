package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a single statement line.
type TransactionType string

const (
	TypePurchase    TransactionType = "PURCHASE"
	TypeInstallment TransactionType = "INSTALLMENT"
	TypeTaxFee      TransactionType = "TAX_FEE"
	TypePayment     TransactionType = "PAYMENT"
	TypeOther       TransactionType = "OTHER"
)

// Valid reports whether t is one of the recognized transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypePurchase, TypeInstallment, TypeTaxFee, TypePayment, TypeOther:
		return true
	}
	return false
}

// Kind distinguishes real extracted transactions from synthetic display
// aggregates. Synthetic entries own the originals they summarize via Children.
type Kind string

const (
	KindRaw        Kind = "raw"
	KindTaxRollup  Kind = "tax-rollup"
	KindPlanRollup Kind = "plan-rollup"
)

// Transaction is one purchase, fee or payment line from a card statement.
// Dates are ISO calendar dates (YYYY-MM-DD, no time component); TargetPeriod
// is the YYYY-MM statement cycle the charge bills into. For installment
// purchases Amount is the per-installment charge, not the total price.
type Transaction struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	Date   string          `json:"date"`
	Detail string          `json:"detail"`
	Amount decimal.Decimal `json:"amount"`
	Type   TransactionType `json:"type"`

	IsInstallment      bool `json:"isInstallment"`
	InstallmentCurrent int  `json:"installmentCurrent"`
	InstallmentTotal   int  `json:"installmentTotal"`

	BankName string `json:"bankName,omitempty"`
	// Plan holds the raw text of the statement's CUOTA/PLAN column, kept so
	// bank plan consolidation can tell true plan purchases from items whose
	// free-text detail merely mentions the plan name.
	Plan string `json:"plan,omitempty"`

	Explanation string `json:"explanation,omitempty"`

	TargetPeriod         string `json:"targetPeriod,omitempty"`
	IsPostClosing        bool   `json:"isPostClosing,omitempty"`
	StatementClosingDate string `json:"statementClosingDate,omitempty"`
	StatementDueDate     string `json:"statementDueDate,omitempty"`

	Children []Transaction `json:"children,omitempty"`
}

// DedupKey is the composite identity used by the deduplication filter.
func (t Transaction) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", t.Date, t.Detail, t.Amount.String(), t.BankName)
}

// BankProfile is the user-managed configuration for one card issuer.
// The keyword fields are natural-language hints consumed by the AI extractor,
// never parsed by the computation core.
type BankProfile struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Columns             []string `json:"columns"`
	CurrencySymbol      string   `json:"currencySymbol"`
	Identifiers         []string `json:"identifiers,omitempty"`
	DueDateKeywords     string   `json:"dueDateKeywords,omitempty"`
	ClosingDateKeywords string   `json:"closingDateKeywords,omitempty"`
}

// FixedExpense is a recurring flat monthly cost used by balance computation.
type FixedExpense struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary holds the period totals shown alongside a grouped table.
type Summary struct {
	Total             decimal.Decimal `json:"total"`
	TotalUSD          decimal.Decimal `json:"totalUSD"`
	TotalInstallments decimal.Decimal `json:"totalInstallments"`
	TotalTaxes        decimal.Decimal `json:"totalTaxes"`
}

// ProcessedResult is the display-ready view of one statement period.
type ProcessedResult struct {
	RawTransactions     []Transaction `json:"rawTransactions"`
	GroupedTransactions []Transaction `json:"groupedTransactions"`
	Summary             Summary       `json:"summary"`
}
