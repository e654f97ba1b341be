// Package projection computes which transactions will bill in a given future
// month and at which installment position. The base month (the most recent
// real statement period) is reported verbatim; strictly future months carry
// only the still-running installment series.
package projection

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/cardcycle/internal/cycle"
	"github.com/dvloznov/cardcycle/internal/dates"
	"github.com/dvloznov/cardcycle/internal/domain"
)

// DefaultHorizonMonths is how far ahead the period picker scans.
const DefaultHorizonMonths = 36

// Project returns the transactions billed in targetPeriod.
//
// When targetPeriod equals basePeriod the period's own transactions are
// returned unchanged. For a future month only installment purchases qualify:
// a series appears iff the month distance from its own period is positive and
// the projected position (current + distance) has not exceeded the series
// length. Projected entries carry the shifted installment position and an
// explanatory sentence; the per-installment amount is never altered.
func Project(txs []domain.Transaction, targetPeriod, basePeriod string) []domain.Transaction {
	if targetPeriod == basePeriod {
		out := make([]domain.Transaction, 0)
		for _, t := range txs {
			if cycle.StatementPeriod(t) == targetPeriod {
				out = append(out, t)
			}
		}
		return out
	}

	target, ok := dates.ParseMonth(targetPeriod)
	if !ok {
		return nil
	}

	out := make([]domain.Transaction, 0)
	for _, t := range txs {
		projected, ok := projectedInstallment(t, target)
		if !ok {
			continue
		}
		t.InstallmentCurrent = projected
		t.Explanation = fmt.Sprintf("En %s pagarás la cuota %d de %d.",
			target.LabelES(), projected, t.InstallmentTotal)
		out = append(out, t)
	}
	return out
}

// projectedInstallment returns the installment position of t in the target
// month, or false when the series does not bill there.
func projectedInstallment(t domain.Transaction, target dates.Month) (int, bool) {
	if !t.IsInstallment {
		return 0, false
	}
	own, ok := dates.ParseMonth(cycle.StatementPeriod(t))
	if !ok {
		return 0, false
	}
	diff := dates.Diff(own, target)
	if diff <= 0 {
		return 0, false
	}
	current := t.InstallmentCurrent
	if current < 1 {
		current = 1
	}
	projected := current + diff
	if projected > t.InstallmentTotal {
		return 0, false
	}
	return projected, true
}

// BillsIn reports whether t would appear in a projection for the target
// month, without materializing the projected record.
func BillsIn(t domain.Transaction, targetPeriod string) bool {
	target, ok := dates.ParseMonth(targetPeriod)
	if !ok {
		return false
	}
	_, ok = projectedInstallment(t, target)
	return ok
}

// AvailablePeriods lists the distinct statement periods present in the data,
// newest first. Unknown periods are dropped.
func AvailablePeriods(txs []domain.Transaction) []string {
	set := make(map[string]struct{})
	for _, t := range txs {
		if p := cycle.StatementPeriod(t); p != cycle.Unknown {
			set[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// FuturePeriods scans up to horizon months past the base period and keeps the
// months where at least one installment series still bills. This is an
// existence check, not a full projection.
func FuturePeriods(txs []domain.Transaction, basePeriod string, horizon int) []string {
	base, ok := dates.ParseMonth(basePeriod)
	if !ok {
		return nil
	}
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}

	var out []string
	for i := 1; i <= horizon; i++ {
		target := base.Add(i)
		for _, t := range txs {
			if _, ok := projectedInstallment(t, target); ok {
				out = append(out, target.Key())
				break
			}
		}
	}
	return out
}

// TotalFor sums the amounts billed in targetPeriod.
func TotalFor(txs []domain.Transaction, targetPeriod, basePeriod string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range Project(txs, targetPeriod, basePeriod) {
		total = total.Add(t.Amount)
	}
	return total
}

// HistoryTotals sums each known period's billed amounts, keyed by period.
func HistoryTotals(txs []domain.Transaction) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, t := range txs {
		p := cycle.StatementPeriod(t)
		if p == cycle.Unknown {
			continue
		}
		totals[p] = totals[p].Add(t.Amount)
	}
	return totals
}
