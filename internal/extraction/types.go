// Package extraction turns statement files (PDFs, screenshots) into domain
// transactions using a multimodal model. The model returns raw statement
// records; BuildTransactions normalizes them into the computation core's
// shape.
package extraction

import (
	"context"
	"errors"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// ErrNoTransactions is returned when a statement parse yields zero records.
// Callers treat it as a failed import, not an empty success.
var ErrNoTransactions = errors.New("no transactions extracted from statement")

// RawItem is one statement line exactly as the model reported it, before any
// normalization. Dates may be in any format the statement prints; Plan is the
// untouched text of the CUOTA/PLAN column.
type RawItem struct {
	Date               string  `json:"date"`
	Detail             string  `json:"detail"`
	Amount             float64 `json:"amount"`
	Type               string  `json:"type,omitempty"`
	Plan               string  `json:"plan,omitempty"`
	InstallmentCurrent int     `json:"installmentCurrent,omitempty"`
	InstallmentTotal   int     `json:"installmentTotal,omitempty"`
}

// RawStatement is the model's full answer for one statement.
type RawStatement struct {
	DueDate      string    `json:"dueDate,omitempty"`
	ClosingDate  string    `json:"closingDate,omitempty"`
	Transactions []RawItem `json:"transactions"`
}

// BillResult is the extraction result for a single service bill.
type BillResult struct {
	ServiceName string  `json:"serviceName"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

// Parser extracts raw statement data from uploaded files. The production
// implementation talks to Gemini; tests substitute a stub.
type Parser interface {
	// ParseStatement extracts the statement lines from a single PDF.
	ParseStatement(ctx context.Context, pdf []byte, bank domain.BankProfile) (RawStatement, error)
	// ParseImages extracts statement lines from one or more screenshots.
	ParseImages(ctx context.Context, images [][]byte, bank domain.BankProfile) (RawStatement, error)
	// AnalyzeBankFormat infers a bank profile draft from a sample statement.
	AnalyzeBankFormat(ctx context.Context, pdf []byte) (domain.BankProfile, error)
	// ParseServiceBill extracts the amount and date from a bill's text.
	ParseServiceBill(ctx context.Context, content, serviceName string) (BillResult, error)
}
