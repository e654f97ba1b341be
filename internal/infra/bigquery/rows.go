// Package bigquery persists transactions, bank profiles, fixed expenses and
// import bookkeeping in BigQuery. Row types mirror the table schemas; the
// mapping functions translate to and from the domain types.
package bigquery

import (
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cardcycle/internal/dates"
	"github.com/dvloznov/cardcycle/internal/domain"
)

// TransactionRow is one row of the transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TxDate civil.Date `bigquery:"tx_date"` // REQUIRED
	Detail string     `bigquery:"detail"`  // REQUIRED
	Amount *big.Rat   `bigquery:"amount"`  // REQUIRED NUMERIC

	BankName string `bigquery:"bank_name"` // NULLABLE
	TxType   string `bigquery:"tx_type"`   // REQUIRED

	InstallmentCurrent int64 `bigquery:"installment_current"`
	InstallmentTotal   int64 `bigquery:"installment_total"`

	TargetPeriod string `bigquery:"target_period"` // YYYY-MM
	PostClosing  bool   `bigquery:"post_closing"`

	ClosingDate bigquery.NullDate `bigquery:"closing_date"` // NULLABLE
	DueDate     bigquery.NullDate `bigquery:"due_date"`     // NULLABLE

	ImportDate civil.Date `bigquery:"import_date"` // REQUIRED

	Plan string `bigquery:"plan"` // raw CUOTA/PLAN column text, NULLABLE
}

// BankRow is one row of the banks table. Columns are comma-joined and
// identifiers "||"-joined, the flattening the web UI's CSV export used.
type BankRow struct {
	BankID              string `bigquery:"bank_id"`
	Name                string `bigquery:"name"`
	Columns             string `bigquery:"columns"`
	CurrencySymbol      string `bigquery:"currency_symbol"`
	Identifiers         string `bigquery:"identifiers"`
	DueDateKeywords     string `bigquery:"due_date_keywords"`
	ClosingDateKeywords string `bigquery:"closing_date_keywords"`
}

// FixedExpenseRow is one row of the fixed_expenses table.
type FixedExpenseRow struct {
	ExpenseID string   `bigquery:"expense_id"`
	Name      string   `bigquery:"name"`
	Amount    *big.Rat `bigquery:"amount"` // NUMERIC
}

// SettingRow is one row of the settings key/value table.
type SettingRow struct {
	Key   string `bigquery:"key"`
	Value string `bigquery:"value"`
}

// StatementRow records one uploaded statement file.
type StatementRow struct {
	StatementID string    `bigquery:"statement_id"`
	BankID      string    `bigquery:"bank_id"`
	GCSURI      string    `bigquery:"gcs_uri"`
	ContentType string    `bigquery:"content_type"`
	UploadedTS  time.Time `bigquery:"uploaded_ts"`
}

// ImportRunRow tracks one extraction attempt over a statement.
type ImportRunRow struct {
	ImportRunID  string                 `bigquery:"import_run_id"`
	StatementID  string                 `bigquery:"statement_id"`
	StartedTS    time.Time              `bigquery:"started_ts"`
	FinishedTS   bigquery.NullTimestamp `bigquery:"finished_ts"`
	Status       string                 `bigquery:"status"` // RUNNING, SUCCESS, FAILED
	ErrorMessage string                 `bigquery:"error_message"`
}

// ratFromDecimal converts without losing NUMERIC precision.
func ratFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func decimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, 2)
}

func nullDate(iso string) bigquery.NullDate {
	d, ok := dates.Parse(iso)
	if !ok {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: d, Valid: true}
}

func dateString(nd bigquery.NullDate) string {
	if !nd.Valid {
		return ""
	}
	return nd.Date.String()
}

// RowFromTransaction flattens a domain transaction for insertion. Synthetic
// rollups are display-only and must never reach storage; callers persist only
// raw extractions.
func RowFromTransaction(t domain.Transaction, importDate civil.Date) *TransactionRow {
	txDate, ok := dates.Parse(t.Date)
	if !ok {
		txDate = importDate
	}
	period := t.TargetPeriod
	if len(period) > 7 {
		period = period[:7]
	}
	return &TransactionRow{
		TransactionID:      t.ID,
		TxDate:             txDate,
		Detail:             t.Detail,
		Amount:             ratFromDecimal(t.Amount),
		BankName:           t.BankName,
		TxType:             string(t.Type),
		InstallmentCurrent: int64(t.InstallmentCurrent),
		InstallmentTotal:   int64(t.InstallmentTotal),
		TargetPeriod:       period,
		PostClosing:        t.IsPostClosing,
		ClosingDate:        nullDate(t.StatementClosingDate),
		DueDate:            nullDate(t.StatementDueDate),
		ImportDate:         importDate,
		Plan:               t.Plan,
	}
}

// Transaction rebuilds the domain shape from a stored row.
func (r *TransactionRow) Transaction() domain.Transaction {
	total := int(r.InstallmentTotal)
	return domain.Transaction{
		ID:                   r.TransactionID,
		Kind:                 domain.KindRaw,
		Date:                 r.TxDate.String(),
		Detail:               r.Detail,
		Amount:               decimalFromRat(r.Amount),
		Type:                 domain.TransactionType(r.TxType),
		IsInstallment:        total > 1,
		InstallmentCurrent:   int(r.InstallmentCurrent),
		InstallmentTotal:     total,
		BankName:             r.BankName,
		Plan:                 r.Plan,
		TargetPeriod:         r.TargetPeriod,
		IsPostClosing:        r.PostClosing,
		StatementClosingDate: dateString(r.ClosingDate),
		StatementDueDate:     dateString(r.DueDate),
	}
}

// RowFromBank flattens a bank profile.
func RowFromBank(b domain.BankProfile) *BankRow {
	return &BankRow{
		BankID:              b.ID,
		Name:                b.Name,
		Columns:             strings.Join(b.Columns, ","),
		CurrencySymbol:      b.CurrencySymbol,
		Identifiers:         strings.Join(b.Identifiers, "||"),
		DueDateKeywords:     b.DueDateKeywords,
		ClosingDateKeywords: b.ClosingDateKeywords,
	}
}

// Bank rebuilds the profile from a stored row.
func (r *BankRow) Bank() domain.BankProfile {
	return domain.BankProfile{
		ID:                  r.BankID,
		Name:                r.Name,
		Columns:             splitNonEmpty(r.Columns, ","),
		CurrencySymbol:      r.CurrencySymbol,
		Identifiers:         splitNonEmpty(r.Identifiers, "||"),
		DueDateKeywords:     r.DueDateKeywords,
		ClosingDateKeywords: r.ClosingDateKeywords,
	}
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

// RowFromFixedExpense flattens a fixed expense.
func RowFromFixedExpense(e domain.FixedExpense) *FixedExpenseRow {
	return &FixedExpenseRow{
		ExpenseID: e.ID,
		Name:      e.Name,
		Amount:    ratFromDecimal(e.Amount),
	}
}

// FixedExpense rebuilds the expense from a stored row.
func (r *FixedExpenseRow) FixedExpense() domain.FixedExpense {
	return domain.FixedExpense{
		ID:     r.ExpenseID,
		Name:   r.Name,
		Amount: decimalFromRat(r.Amount),
	}
}
