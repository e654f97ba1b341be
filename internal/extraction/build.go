package extraction

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cardcycle/internal/cycle"
	"github.com/dvloznov/cardcycle/internal/dates"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/rules"
)

// BuildTransactions normalizes a raw statement into domain transactions:
// dates to ISO, billing period allocated against the statement's closing and
// due dates, installment defaults filled in and bank rules applied. One
// malformed record never aborts the batch; it degrades field by field.
func BuildTransactions(raw RawStatement, bank domain.BankProfile, planRules []rules.PlanRule) []domain.Transaction {
	closing := dates.Normalize(raw.ClosingDate)
	due := dates.Normalize(raw.DueDate)

	out := make([]domain.Transaction, 0, len(raw.Transactions))
	for _, item := range raw.Transactions {
		txDate := dates.Normalize(item.Date)

		tx := domain.Transaction{
			ID:                   uuid.NewString(),
			Kind:                 domain.KindRaw,
			Date:                 txDate,
			Detail:               item.Detail,
			Amount:               decimal.NewFromFloat(item.Amount),
			Type:                 rawType(item),
			IsInstallment:        item.InstallmentTotal > 1,
			InstallmentCurrent:   defaultOne(item.InstallmentCurrent),
			InstallmentTotal:     defaultOne(item.InstallmentTotal),
			BankName:             bank.Name,
			Plan:                 item.Plan,
			TargetPeriod:         cycle.Allocate(txDate, closing, due),
			IsPostClosing:        cycle.PostClosing(txDate, closing),
			StatementClosingDate: closing,
			StatementDueDate:     due,
		}
		if tx.Date == "" {
			tx.Date = civil.DateOf(time.Now()).String()
		}

		out = append(out, rules.Apply(tx, bank.Name, item.Plan, planRules))
	}
	return out
}

// rawType maps the model's type string, preferring the installment evidence
// over whatever label the model picked.
func rawType(item RawItem) domain.TransactionType {
	if item.InstallmentTotal > 1 {
		return domain.TypeInstallment
	}
	t := domain.TransactionType(item.Type)
	if t.Valid() {
		return t
	}
	return domain.TypePurchase
}

func defaultOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
