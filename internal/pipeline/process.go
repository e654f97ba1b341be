package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/grouping"
	"github.com/dvloznov/cardcycle/internal/projection"
)

// Periods lists the selectable statement periods: real ones newest first,
// then the projected future months where installments still bill.
type Periods struct {
	Available []string `json:"available"`
	Future    []string `json:"future"`
}

// ProcessPeriod computes the display view for one period, optionally
// filtered to a single bank. The base period is the newest real one; asking
// for a later month yields an installment projection.
func (s *Service) ProcessPeriod(ctx context.Context, period, bankName string) (domain.ProcessedResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.ProcessedResult{}, err
	}

	txs := snap.Transactions
	if bankName != "" {
		filtered := make([]domain.Transaction, 0, len(txs))
		for _, t := range txs {
			if t.BankName == bankName {
				filtered = append(filtered, t)
			}
		}
		txs = filtered
	}

	available := projection.AvailablePeriods(txs)
	if len(available) == 0 {
		return domain.ProcessedResult{}, nil
	}
	base := available[0]
	if period == "" {
		period = base
	}

	projected := projection.Project(txs, period, base)
	return grouping.Group(projected, period, s.cfg.Keywords, s.cfg.PlanRules), nil
}

// ListPeriods returns the period picker's contents.
func (s *Service) ListPeriods(ctx context.Context) (Periods, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Periods{}, err
	}

	available := projection.AvailablePeriods(snap.Transactions)
	var future []string
	if len(available) > 0 {
		future = projection.FuturePeriods(snap.Transactions, available[0], projection.DefaultHorizonMonths)
	}
	return Periods{Available: available, Future: future}, nil
}

// MonthlyBalance is the income vs spend picture for one period.
type MonthlyBalance struct {
	Period    string          `json:"period"`
	Income    decimal.Decimal `json:"income"`
	Cards     decimal.Decimal `json:"cards"`
	Fixed     decimal.Decimal `json:"fixed"`
	Available decimal.Decimal `json:"available"`
	Healthy   bool            `json:"healthy"`
}

// Balance computes income minus card spend minus fixed expenses for the
// given period, defaulting to the base period.
func (s *Service) Balance(ctx context.Context, period string) (MonthlyBalance, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return MonthlyBalance{}, err
	}

	available := projection.AvailablePeriods(snap.Transactions)
	if len(available) == 0 {
		return MonthlyBalance{Period: period, Income: snap.Income}, nil
	}
	base := available[0]
	if period == "" {
		period = base
	}

	fixed := decimal.Zero
	for _, e := range snap.FixedExpenses {
		fixed = fixed.Add(e.Amount)
	}

	cards := projection.TotalFor(snap.Transactions, period, base)
	left := snap.Income.Sub(cards).Sub(fixed)

	return MonthlyBalance{
		Period:    period,
		Income:    snap.Income,
		Cards:     cards,
		Fixed:     fixed,
		Available: left,
		Healthy:   !left.IsNegative(),
	}, nil
}

// BalanceForecast computes the balance for the base period and the next
// twelve projected months.
func (s *Service) BalanceForecast(ctx context.Context) ([]MonthlyBalance, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	available := projection.AvailablePeriods(snap.Transactions)
	if len(available) == 0 {
		return nil, nil
	}
	base := available[0]

	periods := append([]string{base}, projection.FuturePeriods(snap.Transactions, base, 12)...)
	out := make([]MonthlyBalance, 0, len(periods))
	for _, p := range periods {
		b, err := s.Balance(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
